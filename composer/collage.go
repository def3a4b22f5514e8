package composer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// Collage geometry mirrors the download layout of the results page: a
// fixed-width grid of square tiles on a dark background.
const (
	collageWidth   = 1200
	collagePadding = 20
	collageColumns = 5
	collageGap     = 15

	collageCell = (collageWidth - 2*collagePadding - (collageColumns-1)*collageGap) / collageColumns
)

var (
	// CollageBlack backs the avatar-only collage.
	CollageBlack = color.RGBA{A: 0xff}
	// CollageSlate backs the full-collection collage.
	CollageSlate = color.RGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}
)

// ErrNoImages means nothing in the input could be decoded.
var ErrNoImages = errors.New("composer: no decodable images")

// Collage lays the images out left to right, top to bottom, five per row,
// each cover-cropped to a square tile. Undecodable inputs are skipped and
// the grid compacts. The result is PNG bytes.
func Collage(urls []string, background color.Color) ([]byte, error) {
	tiles := decodeAll(urls)
	if len(tiles) == 0 {
		return nil, ErrNoImages
	}

	rows := (len(tiles) + collageColumns - 1) / collageColumns
	height := 2*collagePadding + rows*collageCell + (rows-1)*collageGap

	canvas := image.NewRGBA(image.Rect(0, 0, collageWidth, height))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(background), image.Point{}, xdraw.Src)

	for i, tile := range tiles {
		col := i % collageColumns
		row := i / collageColumns
		x := collagePadding + col*(collageCell+collageGap)
		y := collagePadding + row*(collageCell+collageGap)
		cell := image.Rect(x, y, x+collageCell, y+collageCell)
		xdraw.CatmullRom.Scale(canvas, cell, tile, coverCrop(tile), xdraw.Over, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("composer: encode collage: %w", err)
	}
	return buf.Bytes(), nil
}

// coverCrop returns the centered square region of an image, the raster
// equivalent of object-fit cover in a square tile.
func coverCrop(img image.Image) image.Rectangle {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == h {
		return b
	}
	if w > h {
		offset := (w - h) / 2
		return image.Rect(b.Min.X+offset, b.Min.Y, b.Min.X+offset+h, b.Max.Y)
	}
	offset := (h - w) / 2
	return image.Rect(b.Min.X, b.Min.Y+offset, b.Max.X, b.Min.Y+offset+w)
}
