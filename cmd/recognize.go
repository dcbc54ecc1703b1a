package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/anurag-haridas/visual-impaired/internal/announce"
	"github.com/anurag-haridas/visual-impaired/internal/config"
	"github.com/anurag-haridas/visual-impaired/internal/constants"
	"github.com/anurag-haridas/visual-impaired/internal/gallery"
	"github.com/anurag-haridas/visual-impaired/internal/metrics"
	"github.com/anurag-haridas/visual-impaired/internal/pipeline"
	"github.com/anurag-haridas/visual-impaired/internal/video"
	"github.com/anurag-haridas/visual-impaired/internal/web"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Recognise faces on the live camera and announce them",
	Long: `Open the camera, recognise faces against the gallery and greet known
people by name. Each person is greeted at most once per cooldown window
unless someone else was greeted in between. Press q in the video window
(or Ctrl+C) to stop.

The gallery must exist; build it first with "visual-impaired encode".

Examples:
  # Run with settings from the environment
  visual-impaired recognize

  # Stricter matching, detection on every third frame
  visual-impaired recognize --tolerance 0.5 --detect-every 3

  # Also announce unknown faces and expose the status API
  visual-impaired recognize --announce-unknown --status-addr :9090`,
	Args: cobra.NoArgs,
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().String("gallery", "", "Gallery file (default VI_GALLERY_PATH or encodings.gob)")
	recognizeCmd.Flags().Float64("tolerance", constants.DefaultTolerance, "Maximum face distance for a match (lower is stricter)")
	recognizeCmd.Flags().Float64("scale", constants.DefaultScale, "Downsampling factor applied before detection")
	recognizeCmd.Flags().Int("detect-every", constants.DefaultDetectEvery, "Run detection on one frame out of N")
	recognizeCmd.Flags().Duration("cooldown", constants.DefaultCooldown, "Silence window before the same person is greeted again")
	recognizeCmd.Flags().Bool("announce-unknown", false, "Also announce faces that match nobody")
	recognizeCmd.Flags().String("voice", "", "Speech engine voice (default: first preferred voice available)")
	recognizeCmd.Flags().String("status-addr", "", "Serve the status API on this address (e.g. :9090)")
}

// applyRecognizeFlags overrides the environment configuration with flags the
// user set explicitly.
func applyRecognizeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("gallery") {
		cfg.Gallery.Path = mustGetString(cmd, "gallery")
	}
	if flags.Changed("tolerance") {
		cfg.Recognition.Tolerance = mustGetFloat64(cmd, "tolerance")
	}
	if flags.Changed("scale") {
		cfg.Recognition.Scale = mustGetFloat64(cmd, "scale")
	}
	if flags.Changed("detect-every") {
		cfg.Recognition.DetectEvery = mustGetInt(cmd, "detect-every")
	}
	if flags.Changed("cooldown") {
		cfg.Announce.Cooldown = mustGetDuration(cmd, "cooldown")
	}
	if flags.Changed("announce-unknown") {
		cfg.Announce.AnnounceUnknown = mustGetBool(cmd, "announce-unknown")
	}
	if flags.Changed("voice") {
		cfg.Speech.Voice = mustGetString(cmd, "voice")
	}
	if flags.Changed("status-addr") {
		cfg.Status.Addr = mustGetString(cmd, "status-addr")
	}
}

// loadGallery loads the gallery file, pointing the operator at encode when
// it is missing or unreadable.
func loadGallery(path string) (*gallery.Gallery, error) {
	g, err := gallery.Load(path)
	if err == nil {
		return g, nil
	}
	var loadErr *gallery.LoadError
	if errors.As(err, &loadErr) && loadErr.NotFound() {
		return nil, fmt.Errorf("gallery file %s not found: run \"visual-impaired encode\" first", path)
	}
	return nil, fmt.Errorf("%w (re-run \"visual-impaired encode\" to rebuild it)", err)
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyRecognizeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The gallery is checked before any device is opened.
	g, err := loadGallery(cfg.Gallery.Path)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d reference faces of %d people from %s\n", g.Size(), len(g.Labels()), cfg.Gallery.Path)

	extractor, closeExtractor, err := newExtractor(cfg)
	if err != nil {
		return err
	}
	defer closeExtractor()

	speaker, closeSpeaker, err := newSpeaker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSpeaker()

	announcer := announce.NewAnnouncer(
		announce.NewThrottle(cfg.Announce.Cooldown),
		speaker,
		announce.Options{
			Greeting:        cfg.Announce.Greeting,
			UnknownGreeting: cfg.Announce.UnknownGreeting,
			AnnounceUnknown: cfg.Announce.AnnounceUnknown,
			ASCIIOnly:       cfg.Speech.ASCIIOnly,
		},
		slog.Default(),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	source, err := openSource(cfg)
	if err != nil {
		return err
	}

	window := video.NewWindow(constants.WindowTitle)
	defer window.Close()

	ctrl, err := pipeline.NewController(pipeline.Config{
		Tolerance:   cfg.Recognition.Tolerance,
		Scale:       cfg.Recognition.Scale,
		DetectEvery: cfg.Recognition.DetectEvery,
	}, g, pipeline.Deps{
		Source:    source,
		Resizer:   video.Resizer{},
		Detector:  video.Detector{Extractor: extractor},
		Display:   window,
		Announcer: announcer,
		Metrics:   m,
		Logger:    slog.Default(),
	})
	if err != nil {
		source.Close()
		return err
	}

	if cfg.Status.Addr != "" {
		server := web.NewServer(cfg.Status.Addr, ctrl, g, reg)
		go func() {
			if err := server.Start(); err != nil {
				slog.Error("web: status server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.StatusShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				fmt.Printf("Error during shutdown: %v\n", err)
			}
		}()
	}

	fmt.Println("Recognising faces. Press q in the video window or Ctrl+C to stop.")
	if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	s := ctrl.Status()
	fmt.Println("\nStopped.")
	fmt.Printf("  Frames:          %d (%d analysed)\n", s.Frames, s.ActiveFrames)
	fmt.Printf("  Faces seen:      %d (%d recognised)\n", s.Probes, s.Identified)
	fmt.Printf("  Greetings:       %d spoken, %d suppressed, %d failed\n", s.Spoken, s.Suppressed, s.Failed)
	return nil
}
