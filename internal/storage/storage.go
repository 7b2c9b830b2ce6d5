// Package storage stores the site's photos (agent headshot, service area
// images, listing thumbnails).
//
// Implementations:
// - LocalStorage: files on disk, served by the app under /files/
// - R2Storage: Cloudflare R2 (S3-compatible) for production
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Storage is an object store addressed by slash-separated keys.
type Storage interface {
	// Put stores data at key. Returns ErrKeyExists when the key is taken
	// and opts.Overwrite is false.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get returns the object at key; the caller closes the reader.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a browser-usable URL for key. An expires of zero asks for
	// a permanent public URL where the provider has one.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	Exists(ctx context.Context, key string) (bool, error)
}

// =============================================================================
// Data Types
// =============================================================================

// PutOptions configures how an object is stored.
type PutOptions struct {
	ContentType string // Detected from the key extension when empty
	MaxSize     int64  // ErrTooLarge above this many bytes; 0 means no limit
	Overwrite   bool   // Replace an existing object
	CacheMaxAge time.Duration
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// =============================================================================
// Configuration Types
// =============================================================================

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	BasePath string // e.g. "./storage"
	BaseURL  string // e.g. "http://localhost:8080/files"
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is the bucket's public domain. When empty every URL is
	// presigned.
	PublicURL string

	// Region is required by the SDK; R2 accepts "auto".
	Region string

	// Endpoint overrides the account endpoint (tests, S3-compatible stores).
	Endpoint string
}

const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// New returns the storage for provider.
func New(provider string, local LocalConfig, r2 R2Config, logger *slog.Logger) (Storage, error) {
	switch provider {
	case ProviderLocal:
		return NewLocalStorage(local, logger)
	case ProviderR2:
		return NewR2Storage(r2, logger)
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", provider)
	}
}

// =============================================================================
// Key Helpers
// =============================================================================

// Asset categories used in keys.
const (
	CategoryAgent    = "agent"
	CategoryAreas    = "areas"
	CategoryListings = "listings"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s and collapses everything but letters and digits to "-".
func Slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// AssetKey returns the key for a site photo.
// Format: site/{category}/{slug}{ext}
//
// Example: AssetKey("areas", "Gulf Shores", ".jpg") = "site/areas/gulf-shores.jpg"
func AssetKey(category, name, ext string) string {
	return fmt.Sprintf("site/%s/%s%s", category, Slug(name), strings.ToLower(ext))
}

// ThumbnailKey returns the key of the thumbnail stored next to an asset.
// Thumbnails are always JPEG.
// Format: site/{category}/thumbs/{slug}.jpg
func ThumbnailKey(assetKey string) string {
	dir, file := path.Split(assetKey)
	base := strings.TrimSuffix(file, path.Ext(file))
	return dir + "thumbs/" + base + ".jpg"
}

// ValidKey reports whether key is a relative, clean, slash-separated path
// that cannot escape its root.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return false
	}
	if path.Clean(key) != key {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return false
		}
	}
	return true
}
