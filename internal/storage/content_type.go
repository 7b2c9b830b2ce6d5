package storage

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
)

// DetectContentType picks a MIME type: the provided one, else the key's
// extension, else a sniff of the first 512 bytes of data, else
// application/octet-stream.
func DetectContentType(providedType, key string, data io.Reader) string {
	if providedType != "" {
		return providedType
	}

	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(key))); ct != "" {
		return ct
	}

	if data != nil {
		buf := make([]byte, 512)
		n, err := io.ReadFull(data, buf)
		if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
			return http.DetectContentType(buf[:n])
		}
	}

	return "application/octet-stream"
}

// imageExtensions are the photo formats the thumbnailer can decode.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

func baseType(contentType string) string {
	return strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
}

// IsAllowedImageType reports whether contentType is a publishable photo.
func IsAllowedImageType(contentType string) bool {
	_, ok := imageExtensions[baseType(contentType)]
	return ok
}

// ExtensionForContentType returns the file extension used for a photo type.
func ExtensionForContentType(contentType string) string {
	if ext, ok := imageExtensions[baseType(contentType)]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
