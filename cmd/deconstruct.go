package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cfsage/memoria/internal/config"
	"github.com/cfsage/memoria/internal/deconstruct"
	"github.com/cfsage/memoria/internal/llm"
)

var (
	strictExtraction bool
	jsonOutput       bool
)

var deconstructCmd = &cobra.Command{
	Use:   "deconstruct [transcript-file]",
	Short: "Deconstruct a story transcript into a storyteller profile",
	Long: `Run the deconstruction pipeline on a transcript file and print the
extracted storyteller profile.

Required environment variables:
  AIML_API_KEY       - API key for the generative model endpoint

Examples:
  memoria deconstruct transcript.txt
  memoria deconstruct transcript.txt --json
  memoria deconstruct transcript.txt --strict`,
	Args: cobra.ExactArgs(1),
	RunE: runDeconstruct,
}

func init() {
	rootCmd.AddCommand(deconstructCmd)
	deconstructCmd.Flags().BoolVar(&strictExtraction, "strict", false, "Fail on model errors instead of using the fallback profile")
	deconstructCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the profile as JSON")
}

func runDeconstruct(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	completer, err := llm.NewClient(cfg.AIMLAPIKey, cfg.AIMLModel)
	if err != nil {
		return err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "memoria"})
	pipeline := deconstruct.New(completer, logger, deconstruct.Options{
		StrictErrors: strictExtraction || cfg.StrictExtraction,
	})

	prof, err := pipeline.Deconstruct(ctx, string(raw))
	if err != nil {
		return fmt.Errorf("deconstruct transcript: %w", err)
	}

	if jsonOutput {
		out, err := json.MarshalIndent(prof, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F780FF")).
		Bold(true)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#8BE9FD"))

	bodyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#E9E9F4"))

	fmt.Println()
	fmt.Println(titleStyle.Render(prof.Title) + "  " + prof.EmojiSummary)
	fmt.Println()
	fmt.Println(labelStyle.Render("Summary:"), bodyStyle.Render(prof.Summary))
	fmt.Println(labelStyle.Render("Themes:"), bodyStyle.Render(strings.Join(prof.Themes, ", ")))
	fmt.Println(labelStyle.Render("Values:"), bodyStyle.Render(strings.Join(prof.UnderlyingValues, ", ")))
	fmt.Println(labelStyle.Render("Traits:"), bodyStyle.Render(prof.TraitList()))
	if prof.MemorableQuote != "" {
		fmt.Println(labelStyle.Render("Quote:"), bodyStyle.Render(prof.MemorableQuote))
	}
	fmt.Println(labelStyle.Render("Essence:"), bodyStyle.Render(prof.Essence))
	fmt.Println()

	return nil
}
