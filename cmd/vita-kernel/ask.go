package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var showSteps bool

// askCmd runs a single coach request from the terminal.
var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Ask the Head Coach once and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.TrimSpace(strings.Join(args, " "))
		if prompt == "" {
			return fmt.Errorf("prompt is required")
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a, err := buildApp(ctx, newLogger())
		if err != nil {
			return err
		}
		defer a.Close()

		record, err := a.coach.Ask(ctx, prompt)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, record.Response)

		if showSteps {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(record.Steps); err != nil {
				return fmt.Errorf("encode steps: %w", err)
			}
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "run %s: %s after %d iteration(s)\n", record.ID, record.Status, record.Iterations)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVar(&showSteps, "steps", false, "also print the step trail as JSON")
}
