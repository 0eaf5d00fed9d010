package catalog

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"roomdine-order-service/internal/storage"
)

const thumbnailEdge = 512

// ImageDownloader fetches raw image bytes. Satisfied by *pos.HTTPClient so
// downloads share the provider client's bounded timeout.
type ImageDownloader interface {
	DownloadImage(ctx context.Context, imageURL string) ([]byte, string, error)
}

// ImageMirror copies provider-hosted product images into the object store so
// the guest menu does not hotlink the POS vendor's CDN.
type ImageMirror struct {
	downloader ImageDownloader
	store      *storage.ObjectStore
	logger     *zap.Logger
}

func NewImageMirror(downloader ImageDownloader, store *storage.ObjectStore, logger *zap.Logger) *ImageMirror {
	return &ImageMirror{downloader: downloader, store: store, logger: logger}
}

// Mirror downloads the provider image, stores the original plus a bounded
// JPEG thumbnail, and returns the public URL of the original.
func (m *ImageMirror) Mirror(ctx context.Context, posItemID, imageURL string) (string, error) {
	data, contentType, err := m.downloader.DownloadImage(ctx, imageURL)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty image body for %s", posItemID)
	}

	key := "products/" + sanitizeKey(posItemID) + extensionFor(contentType)
	publicURL, err := m.store.PutObject(ctx, key, data, contentType, "")
	if err != nil {
		return "", err
	}

	if thumb, err := m.thumbnail(data); err != nil {
		m.logger.Debug("thumbnail generation failed",
			zap.String("posItemId", posItemID), zap.Error(err))
	} else {
		thumbKey := "products/" + sanitizeKey(posItemID) + "_thumb.jpg"
		if _, err := m.store.PutObject(ctx, thumbKey, thumb, "image/jpeg", ""); err != nil {
			m.logger.Debug("thumbnail upload failed",
				zap.String("posItemId", posItemID), zap.Error(err))
		}
	}

	return publicURL, nil
}

func (m *ImageMirror) thumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	resized := imaging.Fit(img, thumbnailEdge, thumbnailEdge, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 82}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

func sanitizeKey(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
