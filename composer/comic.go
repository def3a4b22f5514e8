package composer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"

	"herobook_back/session"
)

// Comic layout: up to three square panels in a row on black, each with a
// caption strip underneath.
const (
	comicPanels      = 3
	comicPanelSize   = 400
	comicGutter      = 8
	comicCaptionBand = 64
	comicCaptionSize = 17
	comicQuality     = 90

	// The 64px strip fits two lines at size 17; longer captions are cut
	// at a word boundary.
	comicCaptionLines      = 2
	comicCaptionLineHeight = 24
	comicCaptionInset      = 12
)

var (
	comicBackground = color.RGBA{A: 0xff}
	comicStripColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	comicTextColor  = color.RGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}
)

// Comic renders the scenes into a one-row comic strip JPEG. Scenes beyond
// the third are ignored; an undecodable scene leaves its panel empty but
// keeps the caption.
func Comic(scenes []session.SceneResult) ([]byte, error) {
	if len(scenes) == 0 {
		return nil, ErrNoImages
	}
	if len(scenes) > comicPanels {
		scenes = scenes[:comicPanels]
	}

	width := 2*comicGutter + len(scenes)*comicPanelSize + (len(scenes)-1)*comicGutter
	height := 2*comicGutter + comicPanelSize + comicCaptionBand

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(comicBackground), image.Point{}, xdraw.Src)

	fc, err := newTextContext(canvas)
	if err != nil {
		return nil, err
	}
	fc.SetFontSize(comicCaptionSize)
	fc.SetSrc(image.NewUniform(comicTextColor))

	f, err := loadFont()
	if err != nil {
		return nil, err
	}
	face := truetype.NewFace(f, &truetype.Options{Size: comicCaptionSize})
	defer face.Close()

	for i, scene := range scenes {
		x := comicGutter + i*(comicPanelSize+comicGutter)
		panel := image.Rect(x, comicGutter, x+comicPanelSize, comicGutter+comicPanelSize)

		if art, decodeErr := decodeDataURL(scene.URL); decodeErr == nil {
			xdraw.CatmullRom.Scale(canvas, panel, art, coverCrop(art), xdraw.Over, nil)
		}

		strip := image.Rect(x, comicGutter+comicPanelSize, x+comicPanelSize, comicGutter+comicPanelSize+comicCaptionBand)
		xdraw.Draw(canvas, strip, image.NewUniform(comicStripColor), image.Point{}, xdraw.Src)

		lines := wrapText(face, scene.Caption, comicPanelSize-2*comicCaptionInset)
		if len(lines) > comicCaptionLines {
			lines = lines[:comicCaptionLines]
		}
		for j, line := range lines {
			baseline := comicGutter + comicPanelSize + (j+1)*comicCaptionLineHeight
			if _, err := fc.DrawString(line, freetype.Pt(x+comicCaptionInset, baseline)); err != nil {
				return nil, fmt.Errorf("composer: draw caption: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: comicQuality}); err != nil {
		return nil, fmt.Errorf("composer: encode comic: %w", err)
	}
	return buf.Bytes(), nil
}
