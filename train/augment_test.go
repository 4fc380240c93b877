package train_test

import (
	"reflect"
	"testing"

	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/jarrahkula/roadseg/train"
)

func tensorValuesEqual(a, b *ts.Tensor) bool {
	av := a.Float64Values()
	bv := b.Float64Values()
	if len(av) != len(bv) {
		return false
	}
	for i := range av {
		if av[i] != bv[i] {
			return false
		}
	}

	return true
}

func TestAugmentTriplesBatch(t *testing.T) {
	images := ts.MustRand([]int64{2, 3, 4, 5}, gotch.Float, gotch.CPU)
	labels := ts.MustRand([]int64{2, 2, 4, 5}, gotch.Float, gotch.CPU)

	augImages, augLabels, err := train.Augment(images, labels)
	if err != nil {
		t.Fatal(err)
	}

	if got := augImages.MustSize(); !reflect.DeepEqual(got, []int64{6, 3, 4, 5}) {
		t.Errorf("augmented image shape: got %v, want [6 3 4 5]", got)
	}
	if got := augLabels.MustSize(); !reflect.DeepEqual(got, []int64{6, 2, 4, 5}) {
		t.Errorf("augmented label shape: got %v, want [6 2 4 5]", got)
	}

	// the middle batch slice carries the originals untouched
	midImages := augImages.MustNarrow(0, 2, 2, false)
	if !tensorValuesEqual(midImages, images) {
		t.Error("middle image slice differs from the original batch")
	}
	midLabels := augLabels.MustNarrow(0, 2, 2, false)
	if !tensorValuesEqual(midLabels, labels) {
		t.Error("middle label slice differs from the original batch")
	}

	midImages.MustDrop()
	midLabels.MustDrop()
	augImages.MustDrop()
	augLabels.MustDrop()
	images.MustDrop()
	labels.MustDrop()
}

func TestAugmentReversesAxes(t *testing.T) {
	// one 2x3 single-channel image with distinct pixel values
	images := ts.MustOfSlice([]float32{
		1, 2, 3,
		4, 5, 6,
	}).MustView([]int64{1, 1, 2, 3}, true)
	labels := ts.MustOfSlice([]float32{
		1, 0, 0,
		0, 1, 0,
	}).MustView([]int64{1, 1, 2, 3}, true)

	augImages, augLabels, err := train.Augment(images, labels)
	if err != nil {
		t.Fatal(err)
	}

	got := augImages.Float64Values()
	want := []float64{
		// vertical flip: rows swapped
		4, 5, 6,
		1, 2, 3,
		// original
		1, 2, 3,
		4, 5, 6,
		// horizontal flip: columns reversed
		3, 2, 1,
		6, 5, 4,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("augmented values: got %v, want %v", got, want)
	}

	gotLabels := augLabels.Float64Values()
	wantLabels := []float64{
		0, 1, 0,
		1, 0, 0,

		1, 0, 0,
		0, 1, 0,

		0, 0, 1,
		0, 1, 0,
	}
	if !reflect.DeepEqual(gotLabels, wantLabels) {
		t.Errorf("augmented labels: got %v, want %v", gotLabels, wantLabels)
	}

	augImages.MustDrop()
	augLabels.MustDrop()
	images.MustDrop()
	labels.MustDrop()
}

func TestAugmentFlipRoundTrip(t *testing.T) {
	images := ts.MustRand([]int64{1, 3, 4, 6}, gotch.Float, gotch.CPU)
	labels := ts.MustRand([]int64{1, 2, 4, 6}, gotch.Float, gotch.CPU)

	aug1Images, aug1Labels, err := train.Augment(images, labels)
	if err != nil {
		t.Fatal(err)
	}

	// augmenting the mirrored slices again must reproduce the originals
	hImages := aug1Images.MustNarrow(0, 2, 1, false)
	hLabels := aug1Labels.MustNarrow(0, 2, 1, false)
	aug2Images, aug2Labels, err := train.Augment(hImages, hLabels)
	if err != nil {
		t.Fatal(err)
	}

	hh := aug2Images.MustNarrow(0, 2, 1, false)
	if !tensorValuesEqual(hh, images) {
		t.Error("double horizontal flip did not reproduce the original")
	}

	vImages := aug1Images.MustNarrow(0, 0, 1, false)
	vLabels := aug1Labels.MustNarrow(0, 0, 1, false)
	aug3Images, aug3Labels, err := train.Augment(vImages, vLabels)
	if err != nil {
		t.Fatal(err)
	}

	vv := aug3Images.MustNarrow(0, 0, 1, false)
	if !tensorValuesEqual(vv, images) {
		t.Error("double vertical flip did not reproduce the original")
	}

	hh.MustDrop()
	vv.MustDrop()
	hImages.MustDrop()
	hLabels.MustDrop()
	vImages.MustDrop()
	vLabels.MustDrop()
	aug1Images.MustDrop()
	aug1Labels.MustDrop()
	aug2Images.MustDrop()
	aug2Labels.MustDrop()
	aug3Images.MustDrop()
	aug3Labels.MustDrop()
	images.MustDrop()
	labels.MustDrop()
}

func TestAugmentRejectsNon4D(t *testing.T) {
	images := ts.MustRand([]int64{3, 4, 5}, gotch.Float, gotch.CPU)
	labels := ts.MustRand([]int64{2, 4, 5}, gotch.Float, gotch.CPU)

	if _, _, err := train.Augment(images, labels); err == nil {
		t.Error("expected an error for 3D inputs")
	}

	images.MustDrop()
	labels.MustDrop()
}
