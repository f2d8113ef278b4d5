// Command intakectl drives the intake API from a terminal and keeps a local session.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"intake-backend/internal/client"
	"intake-backend/internal/shared/config"
)

var (
	apiURL     string
	cacheDir   string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "intakectl",
	Short:         "Business intake command line client",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (default INTAKE_API_URL or PUBLIC_API_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "directory for the local session (default ~/.intake)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config overlay")

	rootCmd.AddCommand(
		loginCmd,
		whoamiCmd,
		uploadCmd,
		analyzeCmd,
		historyCmd,
		logoutCmd,
		extractCmd,
		draftCmd,
		migrateCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	return config.LoadWithFile(configPath)
}

func resolveAPIURL() string {
	if v := strings.TrimSpace(apiURL); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("INTAKE_API_URL")); v != "" {
		return v
	}
	if cfg, err := loadConfig(); err == nil && cfg.PublicAPIBaseURL != "" {
		return cfg.PublicAPIBaseURL
	}
	return "http://localhost:8080"
}

func resolveCacheDir() string {
	if v := strings.TrimSpace(cacheDir); v != "" {
		return v
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".intake")
	}
	return ".intake"
}

// session bundles the API client with the local caches, authenticated when a token is saved.
type session struct {
	api    *client.Client
	caches *client.Caches
}

func openSession() *session {
	s := &session{api: client.New(resolveAPIURL(), "")}
	s.caches = client.NewCaches(resolveCacheDir(), func(ctx context.Context) (client.Me, error) {
		if s.api.Token == "" {
			return client.Me{}, client.ErrNotLoggedIn
		}
		return s.api.Me(ctx)
	})
	if token, err := s.caches.Token(); err == nil {
		s.api.Token = token
	}
	return s
}

func (s *session) requireLogin() error {
	if s.api.Token == "" {
		return fmt.Errorf("%w: run intakectl login --token <token>", client.ErrNotLoggedIn)
	}
	return nil
}
