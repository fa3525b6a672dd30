// Package detect implements a one-shot detection command for a local image.
package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dalanapp/dalan-go/internal/conf"
	"github.com/dalanapp/dalan-go/internal/detection"
	"github.com/dalanapp/dalan-go/internal/detector"
)

// Command creates the detect command.
func Command(settings *conf.Settings) *cobra.Command {
	var annotatedPath string

	cmd := &cobra.Command{
		Use:   "detect [image.jpg]",
		Short: "Run crack detection on a local image and print the summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), settings, args[0], annotatedPath)
		},
	}

	cmd.Flags().StringVarP(&annotatedPath, "output", "o", "", "Write the annotated image to this path")
	return cmd
}

func run(ctx context.Context, settings *conf.Settings, imagePath, annotatedPath string) error {
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	det, err := detector.New(settings)
	if err != nil {
		return fmt.Errorf("failed to initialize detector: %w", err)
	}

	raw, err := det.Detect(ctx, imageData)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	summary := detection.Reduce(raw)
	result := struct {
		PrimaryType string            `json:"primary_type"`
		Summary     detection.Summary `json:"summary"`
	}{
		PrimaryType: detection.PrimaryType(summary),
		Summary:     summary,
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if annotatedPath != "" && len(raw) > 0 {
		annotated, err := detection.Annotate(imageData, raw)
		if err != nil {
			return fmt.Errorf("failed to annotate image: %w", err)
		}
		if err := os.WriteFile(annotatedPath, annotated, 0o644); err != nil {
			return fmt.Errorf("failed to write annotated image: %w", err)
		}
		fmt.Printf("annotated image written to %s\n", annotatedPath)
	}

	return nil
}
