package composer

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"herobook_back/session"
)

func solidDataURL(t *testing.T, c color.RGBA, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return img
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	r, g, b, a := img.At(x, y).RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}

func TestCollageLayout(t *testing.T) {
	colors := []color.RGBA{
		{R: 0xff, A: 0xff}, {G: 0xff, A: 0xff}, {B: 0xff, A: 0xff},
		{R: 0xff, G: 0xff, A: 0xff}, {R: 0xff, B: 0xff, A: 0xff},
		{G: 0xff, B: 0xff, A: 0xff}, {R: 0x80, A: 0xff}, {G: 0x80, A: 0xff},
		{B: 0x80, A: 0xff}, {R: 0x80, G: 0x80, A: 0xff}, {R: 0x40, A: 0xff},
		{G: 0x40, A: 0xff},
	}
	urls := make([]string, len(colors))
	for i, c := range colors {
		urls[i] = solidDataURL(t, c, 64, 64)
	}

	data, err := Collage(urls, CollageBlack)
	if err != nil {
		t.Fatalf("collage: %v", err)
	}
	out := decodePNG(t, data)

	// 12 tiles fill two rows of five plus a partial row of two.
	wantHeight := 2*collagePadding + 3*collageCell + 2*collageGap
	if out.Bounds().Dx() != collageWidth || out.Bounds().Dy() != wantHeight {
		t.Fatalf("collage is %dx%d, want %dx%d", out.Bounds().Dx(), out.Bounds().Dy(), collageWidth, wantHeight)
	}

	// Background shows through the padding.
	if got := rgbaAt(out, 5, 5); got != (color.RGBA{A: 0xff}) {
		t.Fatalf("padding pixel = %+v, want black", got)
	}

	// Input order is preserved left to right, top to bottom.
	for i, want := range colors {
		col := i % collageColumns
		row := i / collageColumns
		x := collagePadding + col*(collageCell+collageGap) + collageCell/2
		y := collagePadding + row*(collageCell+collageGap) + collageCell/2
		if got := rgbaAt(out, x, y); got != want {
			t.Fatalf("tile %d center = %+v, want %+v", i, got, want)
		}
	}
}

func TestCollageSkipsUndecodableImages(t *testing.T) {
	red := color.RGBA{R: 0xff, A: 0xff}
	green := color.RGBA{G: 0xff, A: 0xff}
	urls := []string{
		solidDataURL(t, red, 32, 32),
		"data:image/png;base64,bm90IGFuIGltYWdl",
		solidDataURL(t, green, 32, 32),
	}

	data, err := Collage(urls, CollageBlack)
	if err != nil {
		t.Fatalf("collage: %v", err)
	}
	out := decodePNG(t, data)

	// The grid compacts, so the second tile is the green image.
	x := collagePadding + (collageCell + collageGap) + collageCell/2
	y := collagePadding + collageCell/2
	if got := rgbaAt(out, x, y); got != green {
		t.Fatalf("second tile = %+v, want green", got)
	}
}

func TestCollageErrorsWithoutDecodableImages(t *testing.T) {
	if _, err := Collage([]string{"garbage", "data:image/png;base64,????"}, CollageBlack); !errors.Is(err, ErrNoImages) {
		t.Fatalf("err = %v, want ErrNoImages", err)
	}
}

func TestCoverCrop(t *testing.T) {
	wide := image.NewRGBA(image.Rect(0, 0, 300, 100))
	if got := coverCrop(wide); got != image.Rect(100, 0, 200, 100) {
		t.Fatalf("wide crop = %v", got)
	}
	tall := image.NewRGBA(image.Rect(0, 0, 100, 300))
	if got := coverCrop(tall); got != image.Rect(0, 100, 100, 200) {
		t.Fatalf("tall crop = %v", got)
	}
	square := image.NewRGBA(image.Rect(0, 0, 50, 50))
	if got := coverCrop(square); got != square.Bounds() {
		t.Fatalf("square crop = %v", got)
	}
}

func TestCardRendersTransparentPNG(t *testing.T) {
	avatar := solidDataURL(t, color.RGBA{R: 0xaa, G: 0x33, B: 0x33, A: 0xff}, 300, 300)

	data, err := Card(avatar, "Max")
	if err != nil {
		t.Fatalf("card: %v", err)
	}
	out := decodePNG(t, data)

	if out.Bounds().Dx() != cardWidth {
		t.Fatalf("card width = %d", out.Bounds().Dx())
	}

	// The name banner is opaque, the area beside the stats panel is not.
	if got := rgbaAt(out, 2, 2); got.A != 0xff {
		t.Fatalf("banner pixel = %+v, want opaque", got)
	}
	if got := rgbaAt(out, 2, out.Bounds().Dy()-2); got.A != 0 {
		t.Fatalf("margin pixel = %+v, want transparent", got)
	}

	// Portrait shows up cover-cropped in its cell.
	portraitTop := cardHeaderHeight + cardPortraitMargin
	center := rgbaAt(out, cardWidth/2, portraitTop+(cardWidth-2*cardPortraitMargin)/2)
	if center.R < 0x90 || center.A != 0xff {
		t.Fatalf("portrait center = %+v", center)
	}
}

func TestCardRejectsBadAvatar(t *testing.T) {
	if _, err := Card("not-a-data-url", "Max"); err == nil {
		t.Fatal("expected an error for a bad avatar payload")
	}
}

func TestComicLayout(t *testing.T) {
	scenes := []session.SceneResult{
		{ID: "scene_0", URL: solidDataURL(t, color.RGBA{R: 0xff, A: 0xff}, 200, 200), Caption: "First!"},
		{ID: "scene_1", URL: solidDataURL(t, color.RGBA{G: 0xff, A: 0xff}, 200, 200), Caption: "Second!"},
		{ID: "scene_2", URL: solidDataURL(t, color.RGBA{B: 0xff, A: 0xff}, 200, 200), Caption: "Third!"},
	}

	data, err := Comic(scenes)
	if err != nil {
		t.Fatalf("comic: %v", err)
	}
	out, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode comic: %v", err)
	}

	wantWidth := 2*comicGutter + 3*comicPanelSize + 2*comicGutter
	wantHeight := 2*comicGutter + comicPanelSize + comicCaptionBand
	if out.Bounds().Dx() != wantWidth || out.Bounds().Dy() != wantHeight {
		t.Fatalf("comic is %dx%d, want %dx%d", out.Bounds().Dx(), out.Bounds().Dy(), wantWidth, wantHeight)
	}

	// Panel centers carry the scene art (JPEG wiggles the exact values).
	first := rgbaAt(out, comicGutter+comicPanelSize/2, comicGutter+comicPanelSize/2)
	if first.R < 0xc0 || first.G > 0x40 {
		t.Fatalf("first panel center = %+v, want red-ish", first)
	}

	// The caption strip under each panel is white-ish.
	strip := rgbaAt(out, comicGutter+comicPanelSize-10, comicGutter+comicPanelSize+comicCaptionBand-5)
	if strip.R < 0xe0 || strip.G < 0xe0 || strip.B < 0xe0 {
		t.Fatalf("caption strip = %+v, want white-ish", strip)
	}
}

func TestComicTruncatesToThreePanels(t *testing.T) {
	scenes := make([]session.SceneResult, 5)
	for i := range scenes {
		scenes[i] = session.SceneResult{URL: solidDataURL(t, color.RGBA{R: 0x55, A: 0xff}, 50, 50), Caption: "c"}
	}

	data, err := Comic(scenes)
	if err != nil {
		t.Fatalf("comic: %v", err)
	}
	out, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode comic: %v", err)
	}
	wantWidth := 2*comicGutter + 3*comicPanelSize + 2*comicGutter
	if out.Bounds().Dx() != wantWidth {
		t.Fatalf("comic width = %d, want %d", out.Bounds().Dx(), wantWidth)
	}
}

func TestWrapTextRespectsWidth(t *testing.T) {
	f, err := loadFont()
	if err != nil {
		t.Fatalf("load font: %v", err)
	}
	face := truetype.NewFace(f, &truetype.Options{Size: comicCaptionSize})
	defer face.Close()

	maxWidth := comicPanelSize - 2*comicCaptionInset
	caption := "Max leaps over the crumbling rooftops of the sleeping city, cape snapping in the midnight wind!"

	lines := wrapText(face, caption, maxWidth)
	if len(lines) < 2 {
		t.Fatalf("long caption stayed on %d line(s): %q", len(lines), lines)
	}
	for _, line := range lines {
		if w := font.MeasureString(face, line).Ceil(); w > maxWidth {
			t.Errorf("line %q measures %dpx, max %d", line, w, maxWidth)
		}
	}
	if got := strings.Join(lines, " "); got != caption {
		t.Errorf("wrapping lost words: %q", got)
	}

	if got := wrapText(face, "Short.", maxWidth); len(got) != 1 || got[0] != "Short." {
		t.Errorf("short caption = %q", got)
	}
	if got := wrapText(face, "   ", maxWidth); len(got) != 0 {
		t.Errorf("blank caption = %q", got)
	}
}

func TestComicKeepsLongCaptionInsidePanel(t *testing.T) {
	long := "Max leaps over the crumbling rooftops of the sleeping city, cape snapping in the midnight wind, racing the storm home before sunrise!"
	scenes := []session.SceneResult{
		{ID: "scene_0", URL: solidDataURL(t, color.RGBA{R: 0xff, A: 0xff}, 200, 200), Caption: long},
	}

	data, err := Comic(scenes)
	if err != nil {
		t.Fatalf("comic: %v", err)
	}
	out, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode comic: %v", err)
	}

	// No glyph may spill past the panel into the right border. The scan
	// starts a few pixels in to dodge JPEG ringing at the strip edge.
	for y := comicGutter + comicPanelSize; y < comicGutter+comicPanelSize+comicCaptionBand; y++ {
		for x := comicGutter + comicPanelSize + 4; x < out.Bounds().Dx(); x++ {
			px := rgbaAt(out, x, y)
			if px.R > 0x30 || px.G > 0x30 || px.B > 0x30 {
				t.Fatalf("ink outside the caption strip at (%d,%d): %+v", x, y, px)
			}
		}
	}

	// The overflow wraps onto a second line instead of vanishing.
	lower := false
	for y := comicGutter + comicPanelSize + comicCaptionLineHeight + 8; y < comicGutter+comicPanelSize+comicCaptionBand; y++ {
		for x := comicGutter; x < comicGutter+comicPanelSize; x++ {
			px := rgbaAt(out, x, y)
			if px.R < 0xa0 && px.G < 0xa0 && px.B < 0xa0 {
				lower = true
			}
		}
	}
	if !lower {
		t.Fatal("expected a second caption line in the lower half of the strip")
	}
}

func TestComicRequiresScenes(t *testing.T) {
	if _, err := Comic(nil); !errors.Is(err, ErrNoImages) {
		t.Fatalf("err = %v, want ErrNoImages", err)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		fallback string
		want     string
	}{
		{"Captain Comet!", "herobook", "CaptainComet"},
		{"mega_kid-9", "herobook", "mega_kid-9"},
		{"", "herobook", "herobook"},
		{"!!!", "hero", "hero"},
		{"日本語", "hero", "hero"},
	}
	for _, tt := range tests {
		if got := sanitizeName(tt.name, tt.fallback); got != tt.want {
			t.Fatalf("sanitizeName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
