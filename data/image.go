package data

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/chai2010/tiff"
	ts "github.com/sugarme/gotch/tensor"
	"golang.org/x/image/draw"
)

// ReadImage reads an image from file.
func ReadImage(filename string) (image.Image, error) {
	ext := filepath.Ext(filename)
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext {
	case ".png", ".PNG":
		return png.Decode(f)
	case ".jpg", ".jpeg", ".JPG", ".JPEG":
		return jpeg.Decode(f)
	case ".tiff", ".tif", ".TIFF", ".TIF":
		return tiff.Decode(f)
	default:
		err = fmt.Errorf("Unsupported image format: %v\n", ext)
		return nil, err
	}
}

// toNRGBA redraws any decoded image as NRGBA pixels anchored at the origin.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == image.ZP {
		return n
	}

	rec := image.Rectangle{image.ZP, img.Bounds().Size()}
	dst := image.NewNRGBA(rec)
	draw.Copy(dst, image.ZP, img, img.Bounds(), draw.Src, nil)

	return dst
}

// ImageTensor converts an RGB image to a [3 H W] float tensor scaled to
// [0,1], channel planes in RGB order.
func ImageTensor(img image.Image) (*ts.Tensor, error) {
	src := toNRGBA(img)
	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("Expected a non-empty image. Got %v x %v.\n", w, h)
	}

	plane := h * w
	pixels := make([]float32, 3*plane)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.NRGBAAt(x, y)
			i := y*w + x
			pixels[i] = float32(c.R) / 255.0
			pixels[plane+i] = float32(c.G) / 255.0
			pixels[2*plane+i] = float32(c.B) / 255.0
		}
	}

	return ts.NewTensorFromData(pixels, []int64{3, int64(h), int64(w)})
}

// LabelTensor converts a ground-truth mask image to one-hot class planes
// [2 H W]: plane 0 marks pixels matching the background color key, plane 1
// everything else.
func LabelTensor(img image.Image, bg color.NRGBA) (*ts.Tensor, error) {
	src := toNRGBA(img)
	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("Expected a non-empty mask. Got %v x %v.\n", w, h)
	}

	plane := h * w
	pixels := make([]float32, 2*plane)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.NRGBAAt(x, y)
			i := y*w + x
			if c.R == bg.R && c.G == bg.G && c.B == bg.B {
				pixels[i] = 1
			} else {
				pixels[plane+i] = 1
			}
		}
	}

	return ts.NewTensorFromData(pixels, []int64{2, int64(h), int64(w)})
}
