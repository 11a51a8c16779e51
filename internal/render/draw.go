package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	Width  = 800
	Height = 600
)

var (
	colorBlack     = color.RGBA{A: 0xff}
	colorBlue      = color.RGBA{B: 0xff, A: 0xff}
	colorDarkGreen = color.RGBA{G: 0x64, A: 0xff}
	colorGray      = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

// Draw lays the summary out on a white 800x600 canvas.
func Draw(s Summary, fonts FontSet) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	drawText(img, fonts.Title, colorBlack, 50, 30, TitleText)

	y := 100
	drawText(img, fonts.Text, colorBlue, 50, y, FormatTotal(s.TotalCountries))

	y += 60
	drawText(img, fonts.Text, colorBlack, 50, y, HeadingText)

	y += 40
	for _, e := range s.Top {
		drawText(img, fonts.Small, colorDarkGreen, 70, y, FormatEntry(e))
		y += 35
	}

	y += 30
	drawText(img, fonts.Small, colorGray, 50, y, FormatLastRefreshed(s.LastRefreshedAt))
	return img
}

// drawText places text with its top-left corner at (x, y).
func drawText(dst draw.Image, face font.Face, c color.Color, x, y int, text string) {
	ascent := face.Metrics().Ascent
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y) + ascent},
	}
	d.DrawString(text)
}
