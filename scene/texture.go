package scene

import (
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG
	"io"
	"os"

	_ "golang.org/x/image/bmp" // register BMP
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP

	"github.com/gogpu/raytrace/graphics"
)

// DecodeImage decodes a PNG, JPEG, BMP, TIFF or WebP image into tightly
// packed RGBA. When maxSize is positive, images larger than maxSize on
// either side are scaled down to fit, keeping the aspect ratio.
func DecodeImage(r io.Reader, maxSize int) (*image.RGBA, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("scene: decode image: %w", err)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSize > 0 && (w > maxSize || h > maxSize) {
		if w >= h {
			w, h = maxSize, max(1, h*maxSize/w)
		} else {
			w, h = max(1, w*maxSize/h), maxSize
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		xdraw.Copy(dst, image.Point{}, src, b, xdraw.Src, nil)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	}
	return dst, nil
}

// LoadTexture decodes the image at path and uploads it as a material
// texture.
func LoadTexture(ctx *graphics.Context, path string) (*graphics.Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scene: open texture: %w", err)
	}
	defer f.Close()
	img, err := DecodeImage(f, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	b := img.Bounds()
	return ctx.LoadTexture(path, uint32(b.Dx()), uint32(b.Dy()), img.Pix)
}
