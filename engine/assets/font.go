package assets

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fzipp/bmfont"

	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/resources"
	"github.com/spaghettifunk/anima-engine/engine/vfs"
)

// LoadFont reads an AngelCode .fnt descriptor. Pages are returned as paths
// next to the descriptor, indexed by page id.
func LoadFont(path string) (resources.Font, []string, error) {
	f, err := bmfont.Load(path)
	if err != nil {
		return resources.Font{}, nil, fmt.Errorf("load font %s: %w", path, err)
	}
	d := f.Descriptor

	font := resources.Font{
		Face:       d.Info.Face,
		Size:       uint32(d.Info.Size),
		LineHeight: int32(d.Common.LineHeight),
		Baseline:   int32(d.Common.Base),
		AtlasSizeX: int32(d.Common.ScaleW),
		AtlasSizeY: int32(d.Common.ScaleH),
	}
	for _, g := range d.Chars {
		font.Glyphs = append(font.Glyphs, resources.FontGlyph{
			Codepoint: rune(g.ID),
			X:         uint16(g.X),
			Y:         uint16(g.Y),
			Width:     uint16(g.Width),
			Height:    uint16(g.Height),
			XOffset:   int16(g.XOffset),
			YOffset:   int16(g.YOffset),
			XAdvance:  int16(g.XAdvance),
			PageID:    uint8(g.Page),
		})
	}
	sort.Slice(font.Glyphs, func(i, j int) bool { return font.Glyphs[i].Codepoint < font.Glyphs[j].Codepoint })
	for p, k := range d.Kerning {
		font.Kernings = append(font.Kernings, resources.FontKerning{
			Codepoint0: rune(p.First),
			Codepoint1: rune(p.Second),
			Amount:     int16(k.Amount),
		})
	}

	pages := make([]string, len(d.Pages))
	dir := filepath.Dir(path)
	for _, p := range d.Pages {
		if int(p.ID) < 0 || int(p.ID) >= len(pages) {
			return resources.Font{}, nil, fmt.Errorf("load font %s: page id %d out of range", path, p.ID)
		}
		pages[p.ID] = filepath.Join(dir, p.File)
	}
	return font, pages, nil
}

/**
 * @brief Imports a bitmap font under parent: one texture file per atlas page
 * and the font file referencing them. Returns the font file.
 */
func (im *Importer) AddFont(path string, parent containers.Handle) (containers.Handle, error) {
	font, pages, err := LoadFont(path)
	if err != nil {
		return containers.NullHandle, err
	}
	var files []containers.Handle
	for _, page := range pages {
		tex, err := LoadTexture(page)
		if err != nil {
			for _, f := range files {
				im.fs.Rm(f, nil)
			}
			return containers.NullHandle, err
		}
		file := vfs.CreateFile(im.fs, tex.Name, *tex, parent, nil)
		im.bindSource(file, page)
		files = append(files, file)
		font.Pages = append(font.Pages, im.fs.Data(file))
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	file := vfs.CreateFile(im.fs, name, font, parent, nil)
	im.bindSource(file, path)
	return file, nil
}
