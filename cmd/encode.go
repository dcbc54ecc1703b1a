package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/anurag-haridas/visual-impaired/internal/config"
	"github.com/anurag-haridas/visual-impaired/internal/face"
	"github.com/anurag-haridas/visual-impaired/internal/gallery"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Build the face gallery from reference images",
	Long: `Build the face gallery from a directory of reference images.

The directory holds one subdirectory per person; the subdirectory name is
the label that will be spoken. Every .jpg, .jpeg, .png, .bmp or .webp file
inside contributes one embedding (the first face found). Images without a
face, or that cannot be read, are reported and skipped. An empty directory
produces an empty gallery, with which every face is reported as unknown.

Examples:
  # Encode ./known_faces into ./encodings.gob
  visual-impaired encode

  # Use other locations
  visual-impaired encode --dir /srv/faces --out /srv/faces.gob`,
	Args: cobra.NoArgs,
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	encodeCmd.Flags().String("dir", "", "Reference image directory (default VI_KNOWN_FACES_DIR or known_faces)")
	encodeCmd.Flags().String("out", "", "Gallery file to write (default VI_GALLERY_PATH or encodings.gob)")
}

func runEncode(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if dir := mustGetString(cmd, "dir"); dir != "" {
		cfg.Gallery.KnownFacesDir = dir
	}
	if out := mustGetString(cmd, "out"); out != "" {
		cfg.Gallery.Path = out
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	images, err := gallery.ScanImages(cfg.Gallery.KnownFacesDir)
	if err != nil {
		return err
	}

	start := time.Now()
	var report *gallery.BuildReport
	if len(images) == 0 {
		// An empty gallery is still written; recognize then reports everyone as unknown.
		fmt.Printf("Warning: no reference images found in %s (expected <label>/<image> files)\n", cfg.Gallery.KnownFacesDir)
		report, err = encodeGallery(ctx, nil, nil, nil, cfg.Gallery.Path)
	} else {
		fmt.Printf("Found %d reference images in %s\n", len(images), cfg.Gallery.KnownFacesDir)

		extractor, closeExtractor, extErr := newExtractor(cfg)
		if extErr != nil {
			return extErr
		}
		defer closeExtractor()

		bar := progressbar.NewOptions(len(images),
			progressbar.OptionSetDescription("Encoding faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
		report, err = encodeGallery(ctx, images, extractor, bar, cfg.Gallery.Path)
	}
	if err != nil {
		return err
	}

	fmt.Println("\nEncoding complete!")
	fmt.Printf("  Images read:     %d\n", report.Processed)
	fmt.Printf("  Faces encoded:   %d\n", report.Gallery.Size())
	fmt.Printf("  Images skipped:  %d\n", len(report.Skipped))
	fmt.Printf("  People:          %d\n", len(report.Gallery.Labels()))
	fmt.Printf("  Gallery file:    %s\n", cfg.Gallery.Path)
	fmt.Printf("  Duration:        %s\n", formatDuration(time.Since(start)))

	if len(report.Skipped) > 0 {
		fmt.Println("\nSkipped images:")
		for _, w := range report.Skipped {
			fmt.Printf("  %s: %v\n", w.Path, w.Err)
		}
	}
	return nil
}

// encodeGallery builds a gallery from images and writes it to path. No
// images yields an empty gallery file.
func encodeGallery(ctx context.Context, images []gallery.ReferenceImage, extractor face.Extractor, progress gallery.Progress, path string) (*gallery.BuildReport, error) {
	builder := &gallery.Builder{
		Extractor: extractor,
		Progress:  progress,
		Logger:    slog.Default(),
	}
	report, err := builder.Build(ctx, images)
	if err != nil {
		return nil, fmt.Errorf("encoding interrupted: %w", err)
	}
	if err := gallery.Save(path, report.Gallery); err != nil {
		return nil, err
	}
	return report, nil
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
