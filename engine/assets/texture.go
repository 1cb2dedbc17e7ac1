package assets

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/resources"
	"github.com/spaghettifunk/anima-engine/engine/vfs"
)

// DecodeTexture decodes any registered image format into tightly packed
// RGBA8 pixels.
func DecodeTexture(name string, r io.Reader) (*resources.Texture, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: texture %s", core.ErrUnsupportedFormat, name)
		}
		return nil, fmt.Errorf("decode texture %s: %w", name, err)
	}

	bounds := img.Bounds()
	rgba, ok := img.(*image.NRGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() || bounds.Min != (image.Point{}) {
		rgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	t := &resources.Texture{
		Name:         name,
		Width:        uint32(bounds.Dx()),
		Height:       uint32(bounds.Dy()),
		ChannelCount: 4,
		Pixels:       rgba.Pix,
	}
	for i := 3; i < len(rgba.Pix); i += 4 {
		if rgba.Pix[i] < 255 {
			t.Flags |= resources.TextureFlagBits(resources.TextureFlagHasTransparency)
			break
		}
	}
	core.LogDebug("decoded %s texture '%s' (%dx%d)", format, name, t.Width, t.Height)
	return t, nil
}

// LoadTexture decodes an image file. The texture is named after the file
// without its extension.
func LoadTexture(path string) (*resources.Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	base := filepath.Base(path)
	return DecodeTexture(strings.TrimSuffix(base, filepath.Ext(base)), f)
}

// AddTexture imports an image file under parent and records it as the
// file's source.
func (im *Importer) AddTexture(path string, parent containers.Handle) (containers.Handle, error) {
	tex, err := LoadTexture(path)
	if err != nil {
		return containers.NullHandle, err
	}
	file := vfs.CreateFile(im.fs, tex.Name, *tex, parent, nil)
	im.bindSource(file, path)
	return file, nil
}
