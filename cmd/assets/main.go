// Command assets publishes site photos to the configured storage and prints
// the references to paste into the content file.
//
//	assets publish --category areas --name "Gulf Shores" gulf-shores.png
//	assets url site/areas/gulf-shores.png --expires 1h
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/cobra"

	"github.com/DukeRupert/gulfcoast/internal"
	"github.com/DukeRupert/gulfcoast/internal/assets"
	"github.com/DukeRupert/gulfcoast/internal/storage"
)

// openStore returns the storage the commands work against.
type openStore func(ctx context.Context) (storage.Storage, *slog.Logger, error)

func storeFromEnv(context.Context) (storage.Storage, *slog.Logger, error) {
	cfg, err := internal.NewConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("config initialization failed: %w", err)
	}
	logger := internal.NewLogger(os.Stderr, cfg.Env, cfg.LogLevel)

	store, err := storage.New(cfg.StorageProvider,
		storage.LocalConfig{BasePath: cfg.LocalStoragePath, BaseURL: cfg.LocalStorageURL},
		storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		},
		logger,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("storage initialization failed: %w", err)
	}
	return store, logger, nil
}

func newRootCmd(open openStore) *cobra.Command {
	root := &cobra.Command{
		Use:           "assets",
		Short:         "Manage the site's photos in storage",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPublishCmd(open), newURLCmd(open))
	return root
}

// =============================================================================
// publish
// =============================================================================

type publishOptions struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	File     string `json:"file"`
	Keep     bool   `json:"keep"`
}

func (o publishOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Category, validation.Required,
			validation.In(storage.CategoryAgent, storage.CategoryAreas, storage.CategoryListings).
				Error("must be one of agent, areas, listings")),
		validation.Field(&o.Name, validation.Required, validation.Length(1, 120),
			validation.By(func(any) error {
				if storage.Slug(o.Name) == "" {
					return validation.NewError("validation_name_slug", "must contain a letter or digit")
				}
				return nil
			})),
		validation.Field(&o.File, validation.Required),
	)
}

func newPublishCmd(open openStore) *cobra.Command {
	var opts publishOptions

	cmd := &cobra.Command{
		Use:   "publish FILE",
		Short: "Upload a photo and its thumbnail",
		Long: `Upload a photo under site/{category}/{name} together with a JPEG
thumbnail, replacing any earlier upload with the same name unless --keep is
set. The printed key is the reference to use in the content file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.File = args[0]
			if opts.Name == "" {
				base := filepath.Base(opts.File)
				opts.Name = base[:len(base)-len(filepath.Ext(base))]
			}
			if err := opts.Validate(); err != nil {
				return fmt.Errorf("invalid publish options: %w", err)
			}

			ctx := cmd.Context()
			store, logger, err := open(ctx)
			if err != nil {
				return err
			}

			f, err := os.Open(opts.File)
			if err != nil {
				return fmt.Errorf("open photo: %w", err)
			}
			defer f.Close()

			pub := assets.NewPublisher(store, assets.NewThumbnailer(), logger)
			pub.SetReplace(!opts.Keep)
			out, err := pub.Publish(ctx, opts.Category, opts.Name, mime.TypeByExtension(filepath.Ext(opts.File)), f)
			if storage.IsKeyExists(err) {
				return fmt.Errorf("a photo named %q is already published in %s; drop --keep to replace it", opts.Name, opts.Category)
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "key:       %s\n", out.Key)
			fmt.Fprintf(w, "thumbnail: %s\n", out.ThumbnailKey)
			fmt.Fprintf(w, "size:      %dx%d\n", out.Width, out.Height)
			return printURL(ctx, w, store, out.Key, 0)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "photo category (agent, areas, listings)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name, slugged into the key (default: file name)")
	cmd.Flags().BoolVar(&opts.Keep, "keep", false, "fail instead of replacing an existing upload")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

// =============================================================================
// url
// =============================================================================

func newURLCmd(open openStore) *cobra.Command {
	var expires time.Duration

	cmd := &cobra.Command{
		Use:   "url REF",
		Short: "Print the browser URL for a content image reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := args[0]
			if expires < 0 {
				return fmt.Errorf("--expires must not be negative")
			}

			ctx := cmd.Context()
			if assets.IsExternal(ref) {
				fmt.Fprintf(cmd.OutOrStdout(), "url:       %s\n", ref)
				return nil
			}
			if !storage.ValidKey(ref) {
				return fmt.Errorf("invalid storage key: %q", ref)
			}

			store, _, err := open(ctx)
			if err != nil {
				return err
			}
			rc, info, err := store.Get(ctx, ref)
			if storage.IsNotFound(err) {
				return fmt.Errorf("no object stored at %q", ref)
			}
			if err != nil {
				return err
			}
			rc.Close()

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "type:      %s\n", info.ContentType)
			return printURL(ctx, w, store, ref, expires)
		},
	}

	cmd.Flags().DurationVar(&expires, "expires", 0, "presign for this long instead of the public URL")
	return cmd
}

func printURL(ctx context.Context, w io.Writer, store storage.Storage, key string, expires time.Duration) error {
	var (
		url string
		err error
	)
	if expires == 0 {
		url, err = assets.NewProvider(store).URL(ctx, key)
	} else {
		url, err = store.URL(ctx, key, expires)
	}
	if err != nil {
		return fmt.Errorf("build url: %w", err)
	}
	fmt.Fprintf(w, "url:       %s\n", url)
	return nil
}

func main() {
	if err := newRootCmd(storeFromEnv).ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}
