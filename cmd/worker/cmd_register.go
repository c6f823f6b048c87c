package main

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/etzlertech/rancheye-02-analysis/internal/analysis"
)

func newRegisterCommand(logLevel *string) *cobra.Command {
	var (
		camera  string
		imageID string
		process bool
	)
	cmd := &cobra.Command{
		Use:   "register-image <file.jpg>",
		Short: "Store a local camera image and record its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(camera) == "" {
				return fmt.Errorf("--camera is required")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			if imageID == "" {
				imageID = uuid.NewString()
			}

			app, err := loadApp(cmd.Context(), *logLevel)
			if err != nil {
				return err
			}
			defer app.Close()

			meta := analysis.ImageMetadata{
				ImageID:     imageID,
				CameraName:  camera,
				CapturedAt:  time.Now().UTC(),
				StoragePath: storagePathFor(camera, imageID),
			}
			if err := app.Images.Register(cmd.Context(), meta, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s at %s\n", imageID, meta.StoragePath)

			if !process {
				return nil
			}
			report, err := app.Processor.ProcessImage(cmd.Context(), imageID)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVar(&camera, "camera", "", "Camera name the image came from")
	cmd.Flags().StringVar(&imageID, "id", "", "Image id; generated when empty")
	cmd.Flags().BoolVar(&process, "process", false, "Run every active config for the camera on the image")
	return cmd
}

func storagePathFor(camera, imageID string) string {
	cam := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(camera)), " ", "-")
	return path.Join(cam, imageID+".jpg")
}
