package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anurag-haridas/visual-impaired/internal/announce"
	"github.com/anurag-haridas/visual-impaired/internal/config"
	"github.com/anurag-haridas/visual-impaired/internal/speech"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the voices of the speech engine",
	Long: `List the voices offered by the configured speech engine and mark the
one recognize would pick from the preferred voice list.

Examples:
  visual-impaired voices
  VI_SPEECH_ENGINE=say visual-impaired voices
  visual-impaired voices --say "Hello, Alice"`,
	Args: cobra.NoArgs,
	RunE: runVoices,
}

func init() {
	rootCmd.AddCommand(voicesCmd)

	voicesCmd.Flags().String("say", "", "Speak this text with the resolved voice")
	voicesCmd.Flags().Bool("json", false, "Output as JSON")
}

type voicesOutput struct {
	Engine   string         `json:"engine"`
	Selected string         `json:"selected,omitempty"`
	Voices   []speech.Voice `json:"voices"`
}

func runVoices(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if !speech.IsSupportedEngine(cfg.Speech.Engine) {
		return fmt.Errorf("%w: %q", speech.ErrUnsupportedEngine, cfg.Speech.Engine)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cs, err := speech.NewCommandSpeaker(speech.Options{
		Engine: cfg.Speech.Engine,
		Voice:  cfg.Speech.Voice,
		Rate:   cfg.Speech.Rate,
		Volume: cfg.Speech.Volume,
	})
	if err != nil {
		return err
	}
	voices, err := cs.Voices(ctx)
	if err != nil {
		return fmt.Errorf("listing voices: %w", err)
	}

	selected := cfg.Speech.Voice
	if selected == "" {
		if v, ok := speech.ResolveVoice(voices, cfg.Speech.PreferredVoices); ok {
			selected = v.ID
		}
	}

	if text := mustGetString(cmd, "say"); text != "" {
		if cfg.Speech.ASCIIOnly {
			text = announce.RemoveDiacritics(text)
		}
		if err := cs.WithVoice(selected).Speak(ctx, text); err != nil {
			return err
		}
	}

	if mustGetBool(cmd, "json") {
		if voices == nil {
			voices = []speech.Voice{}
		}
		return outputJSON(voicesOutput{Engine: cfg.Speech.Engine, Selected: selected, Voices: voices})
	}

	fmt.Printf("Engine: %s (%d voices)\n\n", cfg.Speech.Engine, len(voices))
	for _, v := range voices {
		marker := " "
		if v.ID == selected {
			marker = "*"
		}
		fmt.Printf("%s %-30s %-30s %s\n", marker, v.ID, v.Name, v.Language)
	}
	if selected == "" {
		fmt.Println("\nNo preferred voice available; the engine default will be used.")
	}
	return nil
}
