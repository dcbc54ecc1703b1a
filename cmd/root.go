package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "visual-impaired",
	Short: "Recognise people on a live camera and greet them by name",
	Long: `visual-impaired watches a camera, recognises the faces of known people
against a gallery of reference embeddings and speaks their names aloud,
so someone who cannot see the screen knows who just arrived.

Build the gallery once from a directory of reference photos with
"visual-impaired encode", then start the live loop with
"visual-impaired recognize". Settings come from VI_* environment
variables (a .env file is read when present).`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
