package photos

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"strings"

	xdraw "golang.org/x/image/draw"

	"herobook_back/session"
)

const (
	previewMaxEdge     = 320
	previewJPEGQuality = 80
)

var acceptedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Accepted reports whether the content type is one the wizard takes.
func Accepted(contentType string) bool {
	return acceptedContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
}

// ImageID derives the stable id for an upload from its file name and
// modification time in milliseconds.
func ImageID(filename string, modifiedMillis int64) string {
	return fmt.Sprintf("%s-%d", filename, modifiedMillis)
}

// NewImage builds the session image record for a raw upload: id, full
// data URI, and a downscaled JPEG preview. When the preview cannot be
// rendered the full encoding doubles as the preview; validation will
// attach the reason separately.
func NewImage(filename string, modifiedMillis int64, contentType string, data []byte) session.Image {
	if strings.TrimSpace(contentType) == "" {
		contentType = http.DetectContentType(data)
	}

	img := session.Image{
		ID:      ImageID(filename, modifiedMillis),
		DataURL: session.DataURL(contentType, data),
	}

	if preview, err := renderPreview(data); err == nil {
		img.PreviewURL = session.DataURL("image/jpeg", preview)
	} else {
		img.PreviewURL = img.DataURL
	}

	return img
}

// renderPreview downscales the image so its longer edge is at most
// previewMaxEdge pixels and re-encodes it as JPEG.
func renderPreview(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("photos: decode for preview: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= previewMaxEdge && height <= previewMaxEdge {
		// Already preview-sized; re-encode as-is.
		return encodeJPEG(src)
	}

	scale := float64(previewMaxEdge) / float64(width)
	if height > width {
		scale = float64(previewMaxEdge) / float64(height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(width)*scale), int(float64(height)*scale)))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)

	return encodeJPEG(dst)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: previewJPEGQuality}); err != nil {
		return nil, fmt.Errorf("photos: encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// Reorder returns the images arranged by the given id order. Ids missing
// from the set are ignored; images missing from the order keep their
// relative position at the end.
func Reorder(images []session.Image, order []string) []session.Image {
	index := make(map[string]int, len(images))
	for i, img := range images {
		index[img.ID] = i
	}

	reordered := make([]session.Image, 0, len(images))
	taken := make(map[string]bool, len(images))
	for _, id := range order {
		if i, ok := index[id]; ok && !taken[id] {
			reordered = append(reordered, images[i])
			taken[id] = true
		}
	}
	for _, img := range images {
		if !taken[img.ID] {
			reordered = append(reordered, img)
		}
	}
	return reordered
}

// Remove returns the set without the image carrying the given id.
func Remove(images []session.Image, id string) []session.Image {
	out := images[:0:0]
	for _, img := range images {
		if img.ID != id {
			out = append(out, img)
		}
	}
	return out
}
