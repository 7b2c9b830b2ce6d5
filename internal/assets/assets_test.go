package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/gulfcoast/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLocal(t *testing.T) *storage.LocalStorage {
	t.Helper()
	s, err := storage.NewLocalStorage(storage.LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "/files",
	}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProvider_URL(t *testing.T) {
	p := NewProvider(newLocal(t))
	ctx := context.Background()

	testCases := []struct {
		name string
		ref  string
		want string
	}{
		{"empty", "", ""},
		{"absolute https", "https://images.example.com/a.jpg", "https://images.example.com/a.jpg"},
		{"root relative", "/static/img/hero.jpg", "/static/img/hero.jpg"},
		{"storage key", "site/areas/daphne.jpg", "/files/site/areas/daphne.jpg"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := p.URL(ctx, tc.ref)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestProvider_URLWithoutStorage(t *testing.T) {
	p := NewProvider(nil)

	got, err := p.URL(context.Background(), "https://x.example.com/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://x.example.com/a.jpg", got)

	_, err = p.URL(context.Background(), "site/agent/headshot.jpg")
	assert.Error(t, err)
}

func TestThumbnail_FitsBounds(t *testing.T) {
	thumb, w, h, err := NewThumbnailer().Thumbnail(bytes.NewReader(testPNG(t, 400, 200)), ThumbnailWidth, ThumbnailHeight)
	require.NoError(t, err)
	assert.Equal(t, 400, w)
	assert.Equal(t, 200, h)

	img, err := jpeg.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx(), ThumbnailWidth)
	assert.LessOrEqual(t, img.Bounds().Dy(), ThumbnailHeight)
	assert.Equal(t, 96, img.Bounds().Dx(), "wide photos fill the width")
}

func TestThumbnail_RejectsNonImage(t *testing.T) {
	_, _, _, err := NewThumbnailer().Thumbnail(strings.NewReader("not an image"), ThumbnailWidth, ThumbnailHeight)
	assert.Error(t, err)
}

func TestPublisher_Publish(t *testing.T) {
	store := newLocal(t)
	pub := NewPublisher(store, NewThumbnailer(), discardLogger())
	ctx := context.Background()

	out, err := pub.Publish(ctx, storage.CategoryAreas, "Gulf Shores", "", bytes.NewReader(testPNG(t, 320, 240)))
	require.NoError(t, err)

	assert.Equal(t, "site/areas/gulf-shores.png", out.Key)
	assert.Equal(t, "site/areas/thumbs/gulf-shores.jpg", out.ThumbnailKey)
	assert.Equal(t, 320, out.Width)

	for _, key := range []string{out.Key, out.ThumbnailKey} {
		exists, err := store.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists, key)
	}

	// Publishing again replaces the photo.
	_, err = pub.Publish(ctx, storage.CategoryAreas, "Gulf Shores", "image/png", bytes.NewReader(testPNG(t, 64, 64)))
	require.NoError(t, err)
}

func TestPublisher_KeepsExistingWhenReplaceOff(t *testing.T) {
	store := newLocal(t)
	pub := NewPublisher(store, NewThumbnailer(), discardLogger())
	ctx := context.Background()

	_, err := pub.Publish(ctx, storage.CategoryAgent, "Headshot", "", bytes.NewReader(testPNG(t, 100, 100)))
	require.NoError(t, err)

	pub.SetReplace(false)
	_, err = pub.Publish(ctx, storage.CategoryAgent, "Headshot", "", bytes.NewReader(testPNG(t, 50, 50)))
	require.Error(t, err)
	assert.True(t, storage.IsKeyExists(err))

	rc, _, err := store.Get(ctx, "site/agent/headshot.png")
	require.NoError(t, err)
	defer rc.Close()
	img, _, err := image.DecodeConfig(rc)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Width, "first upload is untouched")
}

func TestPublisher_RejectsUnsupportedType(t *testing.T) {
	pub := NewPublisher(newLocal(t), NewThumbnailer(), discardLogger())

	_, err := pub.Publish(context.Background(), storage.CategoryAgent, "Jane", "", strings.NewReader("<svg></svg>"))
	assert.Error(t, err)
}
