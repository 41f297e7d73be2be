package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "memoria",
	Short: "Memoria - Story preservation and persona chat backend",
	Long: `Memoria turns recorded life stories into living, queryable memories.

It transcribes uploaded audio, deconstructs each story into a structured
storyteller profile, indexes the transcript for retrieval, and answers
questions in the storyteller's own voice.`,
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
