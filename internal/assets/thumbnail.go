package assets

import (
	"bytes"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// Listing previews in the lead modal are 96x64.
const (
	ThumbnailWidth  = 96
	ThumbnailHeight = 64

	thumbnailJPEGQuality = 85
)

// Thumbnailer produces small previews of site photos.
type Thumbnailer interface {
	// Thumbnail returns a JPEG fitting within maxWidth x maxHeight and the
	// original image's width and height.
	Thumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error)
}

type imagingThumbnailer struct{}

// NewThumbnailer returns a Thumbnailer backed by the imaging library.
func NewThumbnailer() Thumbnailer {
	return imagingThumbnailer{}
}

func (imagingThumbnailer) Thumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error) {
	img, err := imaging.Decode(data, imaging.AutoOrientation(true))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}
	bounds := img.Bounds()

	thumb := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(thumbnailJPEGQuality)); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}
