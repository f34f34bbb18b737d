package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/timmy/gallery/internal/cache"
	"github.com/timmy/gallery/internal/catalog"
	"github.com/timmy/gallery/internal/config"
	"github.com/timmy/gallery/internal/gallery"
	"github.com/timmy/gallery/internal/logger"
	"github.com/timmy/gallery/internal/storage"
	"github.com/timmy/gallery/internal/upload"
)

// app holds the client-side services shared by every subcommand. Fields that
// are already set are left alone, which lets tests inject fakes.
type app struct {
	configPath string
	verbose    bool

	cfg      *config.Config
	log      *logger.Logger
	store    *cache.Store
	catalog  *catalog.Client
	loader   *gallery.Loader
	uploader upload.BinaryUploader
	out      io.Writer
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gallery",
		Short:         "Browse the image gallery and upload new images",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(newBrowseCommand(a))
	rootCmd.AddCommand(newUploadCommand(a))

	return rootCmd
}

func (a *app) init() error {
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.cfg == nil {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if a.log == nil {
		level := "warn"
		if a.verbose {
			level = "debug"
		}
		a.log = logger.New(&logger.Config{
			Level:       level,
			Format:      "text",
			Output:      os.Stderr,
			ServiceName: "gallery-cli",
		})
	}
	logger.SetDefaultLogger(a.log)

	if a.store == nil {
		a.store = cache.NewStore(a.log)
	}
	if a.catalog == nil {
		a.catalog = catalog.NewClient(&catalog.Config{
			BaseURL: a.cfg.Client.APIBaseURL,
			Timeout: a.cfg.Client.Timeout,
		})
	}
	if a.loader == nil {
		a.loader = gallery.NewLoader(a.store, a.log)
	}
	return nil
}

// collection returns the gallery handle for the configured key.
func (a *app) collection() (*gallery.Collection, error) {
	return a.loader.Initialize(a.cfg.Client.CollectionKey, a.catalog)
}

// binaryUploader builds the object storage uploader on first use so that
// browsing works without storage credentials.
func (a *app) binaryUploader(ctx context.Context) (upload.BinaryUploader, error) {
	if a.uploader != nil {
		return a.uploader, nil
	}

	sc := a.cfg.Storage
	objectStorage, err := storage.NewStorage(&storage.S3Config{
		Type:      storage.StorageType(sc.Type),
		Endpoint:  sc.Endpoint,
		AccessKey: sc.AccessKey,
		SecretKey: sc.SecretKey,
		UseSSL:    sc.UseSSL,
		Bucket:    sc.Bucket,
		Region:    sc.Region,
		PublicURL: sc.PublicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
	}

	a.uploader = storage.NewImageUploader(objectStorage, sc.Prefix)
	return a.uploader, nil
}

func (a *app) uploadRules() upload.Rules {
	rules := upload.DefaultRules()
	uc := a.cfg.Upload
	if uc.SizeLimit > 0 {
		rules.SizeLimit = uc.SizeLimit
	}
	if uc.SizeRule != "" {
		rules.SizeRule = upload.SizeRule(uc.SizeRule)
	}
	if len(uc.AcceptedTypes) > 0 {
		rules.AcceptedTypes = uc.AcceptedTypes
	}
	return rules
}
