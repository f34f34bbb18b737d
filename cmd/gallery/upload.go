package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timmy/gallery/internal/cache"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/upload"
)

func newUploadCommand(a *app) *cobra.Command {
	var (
		filePath    string
		title       string
		description string
		remoteURL   string
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload an image and register it in the gallery",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			draft := &domain.Draft{Title: title, Description: description}
			if filePath != "" {
				file, probe, err := upload.OpenFile(filePath)
				if err != nil {
					return err
				}
				draft.SetFile(file)
				if a.verbose {
					fmt.Fprintf(a.out, "%s: %s %dx%d, %d bytes\n",
						file.Name, probe.MediaType, probe.Width, probe.Height, file.Size)
				}
			}

			// SetFile clears RemoteURL, so a reused upload is applied last
			draft.RemoteURL = remoteURL

			col, err := a.collection()
			if err != nil {
				return err
			}
			unsubscribe := col.Subscribe(func(ev cache.Event) {
				if ev.Kind == cache.EventInvalidated {
					fmt.Fprintf(a.out, "gallery %q invalidated, reloading\n", ev.Key)
				}
			})
			defer unsubscribe()

			pipeline := upload.NewPipeline(upload.PipelineConfig{
				CollectionKey: a.cfg.Client.CollectionKey,
				Rules:         a.uploadRules(),
			}, lazyUploader{a}, a.catalog, a.store, a.log)

			image, err := pipeline.Submit(ctx, draft)
			if err != nil {
				var fieldErrs domain.FieldErrors
				if errors.As(err, &fieldErrs) {
					for _, fe := range fieldErrs {
						fmt.Fprintf(a.out, "%s: %s\n", fe.Field, fe.Message)
					}
				}
				if draft.RemoteURL != "" {
					fmt.Fprintf(a.out, "image already uploaded to %s, retry with --remote-url %s\n",
						draft.RemoteURL, draft.RemoteURL)
				}
				return err
			}
			fmt.Fprintf(a.out, "uploaded %s as %s\n", image.Title, image.ID)

			if err := loadPages(ctx, col, 1); err != nil {
				return err
			}
			a.printItems(col)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Image file to upload")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Image title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Image description")
	cmd.Flags().StringVar(&remoteURL, "remote-url", "", "URL of an already uploaded binary; skips the upload step")
	return cmd
}

// lazyUploader defers storage setup until a valid draft reaches the binary
// phase.
type lazyUploader struct{ a *app }

func (l lazyUploader) UploadBinary(ctx context.Context, file *domain.File) (string, error) {
	u, err := l.a.binaryUploader(ctx)
	if err != nil {
		return "", err
	}
	return u.UploadBinary(ctx, file)
}
