package resources

import "github.com/spaghettifunk/anima-engine/engine/containers"

type FontGlyph struct {
	Codepoint rune
	X         uint16
	Y         uint16
	Width     uint16
	Height    uint16
	XOffset   int16
	YOffset   int16
	XAdvance  int16
	PageID    uint8
}

type FontKerning struct {
	Codepoint0 rune
	Codepoint1 rune
	Amount     int16
}

/**
 * @brief A bitmap font. Glyphs index into atlas pages, each page is a
 * texture file living next to the font in the filesystem.
 */
type Font struct {
	Face       string
	Size       uint32
	LineHeight int32
	Baseline   int32
	AtlasSizeX int32
	AtlasSizeY int32
	Glyphs     []FontGlyph
	Kernings   []FontKerning
	/** @brief Registry handles of the page textures, indexed by page id. */
	Pages []containers.Handle
}

// Glyph looks a codepoint up. Returns nil when the font lacks it.
func (f *Font) Glyph(codepoint rune) *FontGlyph {
	for i := range f.Glyphs {
		if f.Glyphs[i].Codepoint == codepoint {
			return &f.Glyphs[i]
		}
	}
	return nil
}

// Kerning is the advance adjustment between two codepoints.
func (f *Font) Kerning(a, b rune) int16 {
	for _, k := range f.Kernings {
		if k.Codepoint0 == a && k.Codepoint1 == b {
			return k.Amount
		}
	}
	return 0
}
