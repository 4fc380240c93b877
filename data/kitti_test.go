package data_test

import (
	"image"
	"image/color"
	"image/png"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jarrahkula/roadseg/data"
)

func TestGTName(t *testing.T) {
	cases := map[string]string{
		"um_000003.png":  "um_road_000003.png",
		"umm_000022.png": "umm_road_000022.png",
		"uu_000090.png":  "uu_road_000090.png",
	}
	for in, want := range cases {
		if got := data.GTName(in); got != want {
			t.Errorf("GTName(%v): got %v, want %v", in, got, want)
		}
	}
}

func TestImageTensor(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 0, B: 0, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 128, B: 255, A: 255})

	x, err := data.ImageTensor(img)
	if err != nil {
		t.Fatal(err)
	}

	if got := x.MustSize(); !reflect.DeepEqual(got, []int64{3, 1, 2}) {
		t.Fatalf("tensor shape: got %v, want [3 1 2]", got)
	}

	// planes are R, G, B row-major
	vals := x.Float64Values()
	want := []float64{1, 0, 0, 128.0 / 255.0, 0, 1}
	for i := range want {
		if math.Abs(vals[i]-want[i]) > 1e-6 {
			t.Errorf("value %v: got %v, want %v", i, vals[i], want[i])
		}
	}

	x.MustDrop()
}

func TestLabelTensor(t *testing.T) {
	bg := color.NRGBA{R: 255, G: 0, B: 0, A: 255}
	road := color.NRGBA{R: 255, G: 0, B: 255, A: 255}

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, bg)
	img.SetNRGBA(1, 0, bg)
	img.SetNRGBA(0, 1, road)
	img.SetNRGBA(1, 1, road)

	label, err := data.LabelTensor(img, data.BackgroundColor)
	if err != nil {
		t.Fatal(err)
	}

	if got := label.MustSize(); !reflect.DeepEqual(got, []int64{2, 2, 2}) {
		t.Fatalf("label shape: got %v, want [2 2 2]", got)
	}

	vals := label.Float64Values()
	want := []float64{
		// background plane
		1, 1,
		0, 0,
		// road plane
		0, 0,
		1, 1,
	}
	if !reflect.DeepEqual(vals, want) {
		t.Errorf("label planes: got %v, want %v", vals, want)
	}

	label.MustDrop()
}

// writeTestPNG fills a w x h image with c and writes it to path.
func writeTestPNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRoadDataset(t *testing.T) {
	trainDir, err := ioutil.TempDir("", "roadseg-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(trainDir)

	imgDir := filepath.Join(trainDir, "image_2")
	gtDir := filepath.Join(trainDir, "gt_image_2")
	if err := os.MkdirAll(imgDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(gtDir, 0755); err != nil {
		t.Fatal(err)
	}

	writeTestPNG(t, filepath.Join(imgDir, "um_000000.png"), 12, 6, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	writeTestPNG(t, filepath.Join(gtDir, "um_road_000000.png"), 12, 6, data.BackgroundColor)

	shape := data.Shape{Height: 4, Width: 8}
	ds, err := data.NewRoadDataset(trainDir, shape)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 1 {
		t.Fatalf("dataset size: got %v, want 1", ds.Len())
	}

	sample, err := ds.Item(0)
	if err != nil {
		t.Fatal(err)
	}

	if got := sample.Image.MustSize(); !reflect.DeepEqual(got, []int64{3, 4, 8}) {
		t.Errorf("image shape: got %v, want [3 4 8]", got)
	}
	if got := sample.Label.MustSize(); !reflect.DeepEqual(got, []int64{2, 4, 8}) {
		t.Errorf("label shape: got %v, want [2 4 8]", got)
	}

	// an all-background mask maps every pixel to plane 0
	labelSum := 0.0
	vals := sample.Label.Float64Values()
	for i := 0; i < 4*8; i++ {
		labelSum += vals[i]
	}
	if labelSum != 4*8 {
		t.Errorf("background plane sum: got %v, want %v", labelSum, 4*8)
	}

	sample.Image.MustDrop()
	sample.Label.MustDrop()
}

func TestRoadDatasetSplit(t *testing.T) {
	trainDir, err := ioutil.TempDir("", "roadseg-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(trainDir)

	imgDir := filepath.Join(trainDir, "image_2")
	gtDir := filepath.Join(trainDir, "gt_image_2")
	if err := os.MkdirAll(imgDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(gtDir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, fname := range []string{"um_000000.png", "um_000001.png", "um_000002.png"} {
		writeTestPNG(t, filepath.Join(imgDir, fname), 8, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
		writeTestPNG(t, filepath.Join(gtDir, data.GTName(fname)), 8, 4, data.BackgroundColor)
	}

	ds, err := data.NewRoadDataset(trainDir, data.Shape{Height: 4, Width: 8})
	if err != nil {
		t.Fatal(err)
	}

	head, tail, err := ds.Split(1)
	if err != nil {
		t.Fatal(err)
	}
	if head.Len() != 1 || tail.Len() != 2 {
		t.Errorf("split sizes: got %v and %v, want 1 and 2", head.Len(), tail.Len())
	}

	// both halves stay loadable
	sample, err := head.Item(0)
	if err != nil {
		t.Fatal(err)
	}
	sample.Image.MustDrop()
	sample.Label.MustDrop()

	for _, n := range []int{0, 3, -1} {
		if _, _, err := ds.Split(n); err == nil {
			t.Errorf("Split(%v) on 3 frames: expected an error", n)
		}
	}
}

func TestRoadDatasetMissingGroundTruth(t *testing.T) {
	trainDir, err := ioutil.TempDir("", "roadseg-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(trainDir)

	imgDir := filepath.Join(trainDir, "image_2")
	if err := os.MkdirAll(imgDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(trainDir, "gt_image_2"), 0755); err != nil {
		t.Fatal(err)
	}
	writeTestPNG(t, filepath.Join(imgDir, "um_000000.png"), 4, 4, color.NRGBA{A: 255})

	if _, err := data.NewRoadDataset(trainDir, data.DefaultShape()); err == nil {
		t.Error("expected an error for a frame without ground truth")
	}
}

func TestRoadDatasetMissingDirectory(t *testing.T) {
	if _, err := data.NewRoadDataset("/no/such/dir", data.DefaultShape()); err == nil {
		t.Error("expected an error for a missing dataset directory")
	}
}
