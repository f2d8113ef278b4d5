package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"intake-backend/internal/client"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Manage the local questionnaire draft",
}

var draftShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved draft",
	RunE: func(cmd *cobra.Command, args []string) error {
		draft, ok, err := openSession().caches.Draft.Get()
		if err != nil {
			return err
		}
		if !ok {
			printInfo("No draft saved.")
			return nil
		}
		return printJSON(draft)
	},
}

var draftSaveCmd = &cobra.Command{
	Use:   "save <answers.json>",
	Short: "Save questionnaire answers as the current draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		step, _ := cmd.Flags().GetInt("step")
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		answers := map[string]any{}
		if err := json.Unmarshal(raw, &answers); err != nil {
			return fmt.Errorf("answers %s: %w", args[0], err)
		}
		if err := openSession().caches.Draft.Save(client.Draft{Step: step, Answers: answers}); err != nil {
			return err
		}
		printSuccess("Draft saved at step %d", step)
		return nil
	},
}

var draftClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard the saved draft",
	RunE: func(cmd *cobra.Command, args []string) error {
		return openSession().caches.Draft.Clear()
	},
}

func init() {
	draftSaveCmd.Flags().Int("step", 1, "questionnaire step reached")
	draftCmd.AddCommand(draftShowCmd, draftSaveCmd, draftClearCmd)
}
