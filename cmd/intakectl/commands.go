package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"intake-backend/internal/analyses"
	"intake-backend/internal/client"
	"intake-backend/internal/documents"
	"intake-backend/internal/extract"
	"intake-backend/internal/profile"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save a bearer token and verify it",
	RunE:  runLogin,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE:  runWhoami,
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a business profile document and extract its text",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a business profile JSON file",
	RunE:  runAnalyze,
}

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List past analyses or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the token, session and questionnaire draft",
	RunE:  runLogout,
}

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract text from a local document without the server",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	loginCmd.Flags().String("token", "", "bearer token issued by /auth/google or /auth/dev/login")
	_ = loginCmd.MarkFlagRequired("token")
	whoamiCmd.Flags().Bool("refresh", false, "ignore the cached user and ask the server")
	uploadCmd.Flags().Bool("save-pending", false, "create a pending analysis from the extracted text")
	uploadCmd.Flags().String("company", "", "company name for the pending analysis")
	analyzeCmd.Flags().String("profile", "", "path to a business profile JSON file")
	analyzeCmd.Flags().String("pending", "", "pending analysis id to complete (default from the last upload --save-pending)")
	_ = analyzeCmd.MarkFlagRequired("profile")
}

func runLogin(cmd *cobra.Command, args []string) error {
	token, _ := cmd.Flags().GetString("token")
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is required")
	}
	s := openSession()
	if err := s.caches.Logout(); err != nil {
		return err
	}
	s.api.Token = token
	if err := s.caches.SaveToken(token); err != nil {
		return err
	}
	me, err := s.caches.User.Get(cmd.Context(), true)
	if err != nil {
		_ = s.caches.Logout()
		return fmt.Errorf("verify token: %w", err)
	}
	printSuccess("Logged in as %s (%s)", me.Email, me.CompanyName)
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	refresh, _ := cmd.Flags().GetBool("refresh")
	s := openSession()
	if err := s.requireLogin(); err != nil {
		return err
	}
	me, err := s.caches.User.Get(cmd.Context(), refresh)
	if err != nil {
		return err
	}
	printTitle("%s", me.Email)
	printInfo("id:       %s", me.ID)
	printInfo("company:  %s", me.CompanyName)
	if me.FullName != "" {
		printInfo("name:     %s", me.FullName)
	}
	return nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	savePending, _ := cmd.Flags().GetBool("save-pending")
	company, _ := cmd.Flags().GetString("company")
	ctx := cmd.Context()
	s := openSession()
	if savePending {
		if err := s.requireLogin(); err != nil {
			return err
		}
	}

	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	name := filepath.Base(path)
	uploaded, err := s.api.Upload(ctx, name, f)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	printSuccess("Uploaded %s", uploaded.FileName)

	parsed, err := s.api.ParseFile(ctx, documents.ParseRequest{
		FileURL:     uploaded.URL,
		FileName:    uploaded.FileName,
		MimeType:    uploaded.MimeType,
		SavePending: savePending,
		CompanyName: company,
	})
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	userID := ""
	if me, err := s.caches.User.Get(ctx, false); err == nil {
		userID = me.ID
	}
	_, err = s.caches.Session.Update(userID, func(sess *client.Session) {
		sess.UploadedFile = &client.UploadedFile{Name: uploaded.FileName, URL: uploaded.URL, Format: uploaded.Format}
		sess.PendingAnalysisID = parsed.AnalysisID
	})
	if err != nil {
		printWarn("session not saved: %v", err)
	}

	printInfo("Extracted %d characters from %s", len(parsed.Content), parsed.FileName)
	if parsed.AnalysisID != "" {
		printInfo("Pending analysis: %s", parsed.AnalysisID)
	}
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	profilePath, _ := cmd.Flags().GetString("profile")
	pendingID, _ := cmd.Flags().GetString("pending")
	ctx := cmd.Context()
	s := openSession()

	raw, err := os.ReadFile(profilePath)
	if err != nil {
		return err
	}
	payload := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return fmt.Errorf("profile %s: %w", profilePath, err)
	}

	// The session only holds a pending id and file until an analysis
	// consumes them, so a later manual run always inserts a new record.
	sess, hasSession, _ := s.caches.Session.Get()
	pdfURL := ""
	if hasSession {
		if pendingID == "" {
			pendingID = sess.PendingAnalysisID
		}
		if sess.UploadedFile != nil {
			pdfURL = sess.UploadedFile.URL
		}
	}

	result, err := s.api.Analyze(ctx, payload, pendingID, pdfURL)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	normalized := profile.Normalize(payload)
	_, err = s.caches.Session.Update(sess.UserID, func(cur *client.Session) {
		cur.BusinessProfile = &normalized
		cur.Recommendations = result.Recommendations
		cur.ProjectBlueprint = result.ProjectBlueprint
		cur.PendingAnalysisID = ""
		cur.UploadedFile = nil
		cur.LastAnalysisID = result.AnalysisID
	})
	if err != nil {
		printWarn("session not saved: %v", err)
	}

	printTitle("Recommendations for %s", normalized.CompanyName())
	printSeparator()
	for i, rec := range result.Recommendations {
		fmt.Printf("%d. %s [%s, %s]\n", i+1, rec.Title, rec.Category, rec.Priority)
		if rec.Description != "" {
			printInfo("   %s", rec.Description)
		}
	}
	if bp := result.ProjectBlueprint; bp != nil {
		printSeparator()
		printTitle("Blueprint: %s, %s", bp.Timeline, bp.CostBracket)
		for _, phase := range bp.Phases {
			fmt.Printf("  - %s (%s)\n", phase.Name, phase.Duration)
		}
	}
	if result.AnalysisID != "" {
		printSuccess("Saved as analysis %s", result.AnalysisID)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s := openSession()
	if err := s.requireLogin(); err != nil {
		return err
	}
	if len(args) == 1 {
		rec, err := s.api.GetAnalysis(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(rec)
	}
	items, err := s.api.ListAnalyses(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		printInfo("No analyses yet.")
		return nil
	}
	for _, item := range items {
		line := fmt.Sprintf("%s  %-9s  %s  %s", item.CreatedAt.Format("2006-01-02 15:04"), item.Status, item.ID, item.CompanyName)
		switch item.Status {
		case analyses.StatusCompleted:
			successColor.Println(line)
		case analyses.StatusFailed:
			errorColor.Println(line)
			if item.ErrorMessage != nil {
				printInfo("    %s", *item.ErrorMessage)
			}
		default:
			warnColor.Println(line)
		}
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if err := openSession().caches.Logout(); err != nil {
		return err
	}
	printSuccess("Logged out")
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	mime := mimetype.Detect(data).String()
	text, err := extract.Extract(cmd.Context(), data, mime, filepath.Base(args[0]))
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
