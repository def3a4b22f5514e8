package composer

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontOnce sync.Once
	cardFont *truetype.Font
	fontErr  error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		cardFont, fontErr = freetype.ParseFont(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("composer: parse font: %w", fontErr)
	}
	return cardFont, nil
}

// newTextContext prepares a freetype context targeting the given canvas.
// Callers set size and color per string.
func newTextContext(canvas *image.RGBA) (*freetype.Context, error) {
	f, err := loadFont()
	if err != nil {
		return nil, err
	}

	fc := freetype.NewContext()
	fc.SetDPI(72)
	fc.SetFont(f)
	fc.SetClip(canvas.Bounds())
	fc.SetDst(canvas)
	return fc, nil
}

// wrapText greedily breaks text into lines no wider than maxWidth pixels
// when rendered with the given face. A single word wider than maxWidth
// gets a line of its own.
func wrapText(face font.Face, text string, maxWidth int) []string {
	var lines []string
	var line string
	for _, word := range strings.Fields(text) {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if line != "" && font.MeasureString(face, candidate).Ceil() > maxWidth {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
