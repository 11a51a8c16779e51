package render

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const (
	titleSize = 32
	textSize  = 20
	smallSize = 16
)

// FontSet holds one face per text role.
type FontSet struct {
	Title font.Face
	Text  font.Face
	Small font.Face
}

// LoadFonts resolves each role from the TrueType file on fsys, then the
// embedded Go fonts, then basicfont. It never fails.
func LoadFonts(fsys afero.Fs, regularPath, boldPath string, log *zap.Logger) FontSet {
	if log == nil {
		log = zap.NewNop()
	}
	regular := parseFont(fsys, regularPath, goregular.TTF, log)
	bold := parseFont(fsys, boldPath, gobold.TTF, log)

	return FontSet{
		Title: newFace(bold, titleSize),
		Text:  newFace(regular, textSize),
		Small: newFace(regular, smallSize),
	}
}

// BasicFonts uses the fixed 7x13 bitmap face for every role.
func BasicFonts() FontSet {
	return FontSet{Title: basicfont.Face7x13, Text: basicfont.Face7x13, Small: basicfont.Face7x13}
}

func parseFont(fsys afero.Fs, path string, fallback []byte, log *zap.Logger) *opentype.Font {
	if path != "" && fsys != nil {
		if data, err := afero.ReadFile(fsys, path); err == nil {
			if f, err := opentype.Parse(data); err == nil {
				return f
			}
			log.Warn("font file unparseable, using embedded font", zap.String("path", path))
		} else {
			log.Debug("font file unavailable, using embedded font", zap.String("path", path))
		}
	}
	f, err := opentype.Parse(fallback)
	if err != nil {
		log.Warn("embedded font unparseable, using basicfont", zap.Error(err))
		return nil
	}
	return f
}

func newFace(f *opentype.Font, size float64) font.Face {
	if f == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}
