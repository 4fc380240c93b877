package main

import (
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// roadGreen is the overlay color for predicted road pixels.
var roadGreen = color.NRGBA{R: 0, G: 255, B: 0, A: 255}

// overlayMask paints mask-true pixels over the frame in translucent green.
// mask is row-major at the frame size.
func overlayMask(frame image.Image, mask []bool) *image.NRGBA {
	rec := image.Rectangle{image.ZP, frame.Bounds().Size()}
	dst := image.NewNRGBA(rec)
	draw.Copy(dst, image.ZP, frame, frame.Bounds(), draw.Src, nil)

	alpha := image.NewAlpha(rec)
	w := rec.Dx()
	for y := 0; y < rec.Dy(); y++ {
		for x := 0; x < w; x++ {
			if mask[y*w+x] {
				alpha.SetAlpha(x, y, color.Alpha{A: 127}) // 50% opacity
			}
		}
	}

	draw.DrawMask(dst, rec, image.NewUniform(roadGreen), image.Point{}, alpha, image.Point{}, draw.Over)

	return dst
}

// savePNG writes img to path.
func savePNG(img image.Image, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
