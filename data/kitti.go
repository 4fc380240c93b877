package data

import (
	"fmt"
	"image/color"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// BackgroundColor is the KITTI road benchmark ground-truth color key:
// pure red pixels mark non-road.
var BackgroundColor = color.NRGBA{R: 255, G: 0, B: 0, A: 255}

// Shape is the working image size fed to the network, in pixels. Both sides
// must be divisible by 32 for the backbone.
type Shape struct {
	Height int
	Width  int
}

// DefaultShape returns the KITTI road frame size the network trains at.
func DefaultShape() Shape {
	return Shape{Height: 160, Width: 576}
}

// RoadDataset pairs KITTI road camera frames with their ground-truth road
// masks, resized to a fixed working shape.
type RoadDataset struct {
	imgDir string
	gtDir  string
	fnames []string
	shape  Shape
}

// NewRoadDataset enumerates camera frames under <trainDir>/image_2 and
// verifies each has a road mask under <trainDir>/gt_image_2. It fails on a
// missing directory or mask so a broken dataset surfaces before training.
func NewRoadDataset(trainDir string, shape Shape) (*RoadDataset, error) {
	imgDir := filepath.Join(trainDir, "image_2")
	gtDir := filepath.Join(trainDir, "gt_image_2")

	files, err := ioutil.ReadDir(imgDir)
	if err != nil {
		return nil, fmt.Errorf("Missing dataset image directory: %v\n", err)
	}

	ds := &RoadDataset{
		imgDir: imgDir,
		gtDir:  gtDir,
		shape:  shape,
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		gtFile := filepath.Join(gtDir, GTName(f.Name()))
		if _, err := os.Stat(gtFile); err != nil {
			return nil, fmt.Errorf("Missing ground truth %v for frame %v\n", gtFile, f.Name())
		}
		ds.fnames = append(ds.fnames, f.Name())
	}
	if len(ds.fnames) == 0 {
		return nil, fmt.Errorf("No camera frames found in %v\n", imgDir)
	}

	return ds, nil
}

// Split carves the first n frames off as a held-out dataset and returns it
// with the remainder. Frames keep directory listing order, so the split is
// stable across runs.
func (ds *RoadDataset) Split(n int) (*RoadDataset, *RoadDataset, error) {
	if n <= 0 || n >= len(ds.fnames) {
		return nil, nil, fmt.Errorf("Invalid split size %v for %v frames\n", n, len(ds.fnames))
	}

	head := &RoadDataset{imgDir: ds.imgDir, gtDir: ds.gtDir, fnames: ds.fnames[:n], shape: ds.shape}
	tail := &RoadDataset{imgDir: ds.imgDir, gtDir: ds.gtDir, fnames: ds.fnames[n:], shape: ds.shape}

	return head, tail, nil
}

// GTName maps a camera frame name to its road ground-truth name:
// um_000042.png becomes um_road_000042.png.
func GTName(fname string) string {
	parts := strings.SplitN(fname, "_", 2)
	if len(parts) != 2 {
		return fname
	}

	return parts[0] + "_road_" + parts[1]
}

// Len implements Dataset.
func (ds *RoadDataset) Len() int {
	return len(ds.fnames)
}

// Item loads one frame and mask pair as tensors at the working shape.
// Camera frames resize with Lanczos; masks resize with nearest neighbour so
// the ground-truth color keys stay exact.
func (ds *RoadDataset) Item(idx int) (*Sample, error) {
	fname := ds.fnames[idx]

	img, err := ReadImage(filepath.Join(ds.imgDir, fname))
	if err != nil {
		return nil, err
	}
	frame := resize.Resize(uint(ds.shape.Width), uint(ds.shape.Height), img, resize.Lanczos3)

	gt, err := ReadImage(filepath.Join(ds.gtDir, GTName(fname)))
	if err != nil {
		return nil, err
	}
	mask := imaging.Resize(gt, ds.shape.Width, ds.shape.Height, imaging.NearestNeighbor)

	imageTs, err := ImageTensor(frame)
	if err != nil {
		return nil, err
	}
	labelTs, err := LabelTensor(mask, BackgroundColor)
	if err != nil {
		imageTs.MustDrop()
		return nil, err
	}

	return &Sample{Image: imageTs, Label: labelTs}, nil
}
