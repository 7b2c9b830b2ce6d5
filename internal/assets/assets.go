// Package assets turns image references from the site content into URLs and
// publishes photos, with thumbnails, to storage.
package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/DukeRupert/gulfcoast/internal/storage"
)

const (
	// MaxPhotoSize is the largest photo Publish accepts.
	MaxPhotoSize = 10 << 20

	photoCacheAge = 30 * 24 * time.Hour
)

// Provider resolves image references to browser URLs. A reference is either
// an absolute URL (or a root-relative path), used as is, or a storage key.
type Provider struct {
	store storage.Storage
}

func NewProvider(store storage.Storage) *Provider {
	return &Provider{store: store}
}

// IsExternal reports whether ref is already a URL rather than a storage key.
func IsExternal(ref string) bool {
	return strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "/")
}

// URL returns the URL for ref. An empty ref yields an empty URL.
func (p *Provider) URL(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || IsExternal(ref) {
		return ref, nil
	}
	if p.store == nil {
		return "", fmt.Errorf("resolve %q: no storage configured", ref)
	}
	return p.store.URL(ctx, ref, 0)
}

// Published describes the keys written by Publish.
type Published struct {
	Key          string
	ThumbnailKey string
	Width        int
	Height       int
}

// Publisher uploads site photos and their thumbnails.
type Publisher struct {
	store   storage.Storage
	thumbs  Thumbnailer
	logger  *slog.Logger
	replace bool
}

func NewPublisher(store storage.Storage, thumbs Thumbnailer, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, thumbs: thumbs, logger: logger, replace: true}
}

// SetReplace controls whether Publish overwrites an existing photo.
func (p *Publisher) SetReplace(replace bool) {
	p.replace = replace
}

// Publish stores a photo under site/{category}/{slug(name)} and a JPEG
// thumbnail next to it. Existing objects are replaced unless SetReplace(false)
// was called, in which case a taken key yields storage.ErrKeyExists.
func (p *Publisher) Publish(ctx context.Context, category, name, contentType string, data io.Reader) (Published, error) {
	raw, err := io.ReadAll(io.LimitReader(data, MaxPhotoSize+1))
	if err != nil {
		return Published{}, fmt.Errorf("read photo: %w", err)
	}
	if len(raw) > MaxPhotoSize {
		return Published{}, fmt.Errorf("photo exceeds %d bytes", MaxPhotoSize)
	}

	contentType = storage.DetectContentType(contentType, "", bytes.NewReader(raw))
	if !storage.IsAllowedImageType(contentType) {
		return Published{}, fmt.Errorf("unsupported image type %q", contentType)
	}

	thumb, width, height, err := p.thumbs.Thumbnail(bytes.NewReader(raw), ThumbnailWidth, ThumbnailHeight)
	if err != nil {
		return Published{}, err
	}

	out := Published{
		Key:    storage.AssetKey(category, name, storage.ExtensionForContentType(contentType)),
		Width:  width,
		Height: height,
	}
	out.ThumbnailKey = storage.ThumbnailKey(out.Key)

	opts := storage.PutOptions{
		ContentType: contentType,
		MaxSize:     MaxPhotoSize,
		Overwrite:   p.replace,
		CacheMaxAge: photoCacheAge,
	}
	if err := p.store.Put(ctx, out.Key, bytes.NewReader(raw), opts); err != nil {
		return Published{}, fmt.Errorf("store photo: %w", err)
	}

	opts.ContentType = "image/jpeg"
	if err := p.store.Put(ctx, out.ThumbnailKey, bytes.NewReader(thumb), opts); err != nil {
		return Published{}, fmt.Errorf("store thumbnail: %w", err)
	}

	p.logger.Info("published photo",
		"key", out.Key,
		"thumbnail", out.ThumbnailKey,
		"width", width,
		"height", height,
	)
	return out, nil
}
