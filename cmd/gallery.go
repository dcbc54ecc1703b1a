package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anurag-haridas/visual-impaired/internal/config"
	"github.com/anurag-haridas/visual-impaired/internal/constants"
	"github.com/anurag-haridas/visual-impaired/internal/gallery"
	"github.com/anurag-haridas/visual-impaired/internal/web/handlers"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Inspect the encoded face gallery",
	Long:  "Commands for inspecting the gallery file produced by encode.",
}

var galleryInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the people and reference faces in the gallery",
	Long: `Show the people in the gallery with the number of reference faces each.

Examples:
  visual-impaired gallery info
  visual-impaired gallery info --json`,
	Args: cobra.NoArgs,
	RunE: runGalleryInfo,
}

var galleryAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Find reference faces of different people that look alike",
	Long: `Report pairs of reference faces labelled as different people whose
distance is within the matching tolerance. A live face near such a pair
may be greeted with the wrong name; consider replacing one of the images
or lowering the tolerance.

Examples:
  visual-impaired gallery audit
  visual-impaired gallery audit --tolerance 0.5 --neighbors 10`,
	Args: cobra.NoArgs,
	RunE: runGalleryAudit,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryInfoCmd)
	galleryCmd.AddCommand(galleryAuditCmd)

	galleryCmd.PersistentFlags().String("gallery", "", "Gallery file (default VI_GALLERY_PATH or encodings.gob)")
	galleryCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	galleryAuditCmd.Flags().Float64("tolerance", constants.DefaultTolerance, "Distance at or below which two faces conflict")
	galleryAuditCmd.Flags().Int("neighbors", constants.DefaultAuditNeighbors, "Nearest neighbours examined per reference face")
}

func galleryPath(cmd *cobra.Command, cfg *config.Config) string {
	if cmd.Flags().Changed("gallery") {
		return mustGetString(cmd, "gallery")
	}
	return cfg.Gallery.Path
}

func runGalleryInfo(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	path := galleryPath(cmd, cfg)
	g, err := loadGallery(path)
	if err != nil {
		return err
	}

	summary := handlers.Summarize(g)
	if mustGetBool(cmd, "json") {
		return outputJSON(summary)
	}

	fmt.Printf("Gallery: %s\n", path)
	fmt.Printf("  Reference faces: %d\n", summary.Entries)
	fmt.Printf("  Dimension:       %d\n", summary.Dimension)
	fmt.Printf("  People:          %d\n", len(summary.Labels))
	if len(summary.Labels) > 0 {
		fmt.Println()
		for _, l := range summary.Labels {
			fmt.Printf("  %-30s %d\n", l.Label, l.Entries)
		}
	}
	return nil
}

type auditOutput struct {
	Gallery   string          `json:"gallery"`
	Tolerance float64         `json:"tolerance"`
	Checked   int             `json:"checked"`
	Conflicts []auditConflict `json:"conflicts"`
}

type auditConflict struct {
	A        int     `json:"a"`
	B        int     `json:"b"`
	LabelA   string  `json:"label_a"`
	LabelB   string  `json:"label_b"`
	Distance float64 `json:"distance"`
}

func runGalleryAudit(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	path := galleryPath(cmd, cfg)
	tolerance := mustGetFloat64(cmd, "tolerance")
	neighbors := mustGetInt(cmd, "neighbors")
	if tolerance <= 0 {
		return fmt.Errorf("--tolerance must be positive, got %v", tolerance)
	}
	if neighbors <= 0 {
		return fmt.Errorf("--neighbors must be positive, got %d", neighbors)
	}

	g, err := loadGallery(path)
	if err != nil {
		return err
	}
	report := gallery.Audit(g, tolerance, neighbors)

	if mustGetBool(cmd, "json") {
		out := auditOutput{Gallery: path, Tolerance: tolerance, Checked: report.Checked, Conflicts: []auditConflict{}}
		for _, c := range report.Conflicts {
			out.Conflicts = append(out.Conflicts, auditConflict(c))
		}
		return outputJSON(out)
	}

	fmt.Printf("Checked %d reference faces at tolerance %.2f\n", report.Checked, tolerance)
	if len(report.Conflicts) == 0 {
		fmt.Println("No conflicting faces found.")
		return nil
	}
	fmt.Printf("\nFound %d conflicting pairs:\n", len(report.Conflicts))
	for _, c := range report.Conflicts {
		fmt.Printf("  #%-4d %-20s ~ #%-4d %-20s distance %.4f\n", c.A, c.LabelA, c.B, c.LabelB, c.Distance)
	}
	return nil
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
