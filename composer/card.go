package composer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/golang/freetype"
	xdraw "golang.org/x/image/draw"

	"herobook_back/hero"
)

// Card layout. The exported card keeps a transparent background so it can
// be dropped onto anything.
const (
	cardWidth          = 600
	cardHeaderHeight   = 90
	cardPortraitMargin = 40
	cardStatsHeight    = 230
	cardNameSize       = 44
	cardStatSize       = 22
	cardStatLineGap    = 38
)

var (
	cardHeaderColor = color.RGBA{R: 0x1e, G: 0x29, B: 0x3b, A: 0xff}
	cardPanelColor  = color.RGBA{R: 0xf8, G: 0xfa, B: 0xfc, A: 0xf2}
	cardNameColor   = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	cardStatColor   = color.RGBA{R: 0x1e, G: 0x29, B: 0x3b, A: 0xff}
	cardLevelColor  = color.RGBA{R: 0xf5, G: 0x9e, B: 0x0b, A: 0xff}
)

// Card renders the trading-card export for one avatar: name banner, square
// portrait, then the flavor stats. The returned PNG has a transparent
// background outside the drawn panels.
func Card(avatarURL, heroName string) ([]byte, error) {
	portrait, err := decodeDataURL(avatarURL)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(heroName)
	if name == "" {
		name = "hero"
	}
	stats := hero.Stats(name)

	portraitSize := cardWidth - 2*cardPortraitMargin
	height := cardHeaderHeight + portraitSize + 2*cardPortraitMargin + cardStatsHeight
	canvas := image.NewRGBA(image.Rect(0, 0, cardWidth, height))

	// Name banner.
	xdraw.Draw(canvas, image.Rect(0, 0, cardWidth, cardHeaderHeight), image.NewUniform(cardHeaderColor), image.Point{}, xdraw.Src)

	// Portrait, cover-cropped square.
	portraitTop := cardHeaderHeight + cardPortraitMargin
	cell := image.Rect(cardPortraitMargin, portraitTop, cardPortraitMargin+portraitSize, portraitTop+portraitSize)
	xdraw.CatmullRom.Scale(canvas, cell, portrait, coverCrop(portrait), xdraw.Over, nil)

	// Stats panel.
	statsTop := portraitTop + portraitSize + cardPortraitMargin
	xdraw.Draw(canvas, image.Rect(cardPortraitMargin, statsTop, cardWidth-cardPortraitMargin, statsTop+cardStatsHeight), image.NewUniform(cardPanelColor), image.Point{}, xdraw.Src)

	fc, err := newTextContext(canvas)
	if err != nil {
		return nil, err
	}

	fc.SetFontSize(cardNameSize)
	fc.SetSrc(image.NewUniform(cardNameColor))
	if _, err := fc.DrawString(strings.ToUpper(name), freetype.Pt(cardPortraitMargin, 60)); err != nil {
		return nil, fmt.Errorf("composer: draw hero name: %w", err)
	}

	fc.SetFontSize(cardStatSize)
	fc.SetSrc(image.NewUniform(cardLevelColor))
	line := statsTop + cardStatLineGap
	if _, err := fc.DrawString(fmt.Sprintf("POWER LEVEL: %d / 10", stats.PowerLevel), freetype.Pt(cardPortraitMargin+20, line)); err != nil {
		return nil, fmt.Errorf("composer: draw power level: %w", err)
	}

	fc.SetSrc(image.NewUniform(cardStatColor))
	for _, stat := range []string{
		"POWER: " + stats.PowerType,
		"MOVE: " + stats.SignatureMove,
		"WEAKNESS: " + stats.Weakness,
		"ORIGIN: " + stats.OriginPlanet,
	} {
		line += cardStatLineGap
		if _, err := fc.DrawString(stat, freetype.Pt(cardPortraitMargin+20, line)); err != nil {
			return nil, fmt.Errorf("composer: draw stat: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("composer: encode card: %w", err)
	}
	return buf.Bytes(), nil
}
