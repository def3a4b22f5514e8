package composer

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"log"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

const decodeParallelism = 4

var errBadDataURL = errors.New("composer: data URL is not a mime/base64 pair")

func decodeDataURL(dataURL string) (image.Image, error) {
	_, payload, ok := strings.Cut(dataURL, ",")
	if !ok {
		return nil, errBadDataURL
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("composer: decode payload: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("composer: decode image: %w", err)
	}
	return img, nil
}

// decodeAll decodes every data URL concurrently, preserving input order.
// Undecodable entries are logged and dropped; the compacted remainder is
// returned.
func decodeAll(urls []string) []image.Image {
	decoded := make([]image.Image, len(urls))

	g := new(errgroup.Group)
	g.SetLimit(decodeParallelism)
	for i, url := range urls {
		g.Go(func() error {
			img, err := decodeDataURL(url)
			if err != nil {
				log.Printf("composer: skipping image %d: %v", i, err)
				return nil
			}
			decoded[i] = img
			return nil
		})
	}
	g.Wait()

	compact := decoded[:0]
	for _, img := range decoded {
		if img != nil {
			compact = append(compact, img)
		}
	}
	return compact
}
