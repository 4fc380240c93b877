package encoder_test

import (
	"reflect"
	"testing"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/jarrahkula/roadseg/encoder"
)

// The backbone must expose three feature maps at 1/8, 1/16 and 1/32 of the
// input size with the advertised channel depths.
func TestVGG16EncoderFeatureShapes(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	enc := encoder.NewVGG16Encoder(vs.Root(), 0.5)

	image := ts.MustRand([]int64{1, 3, 64, 96}, gotch.Float, gotch.CPU)
	features := enc.ForwardAll(image, false)
	if len(features) != 3 {
		t.Fatalf("feature maps: got %v, want 3", len(features))
	}

	wants := [][]int64{
		{1, 256, 8, 12},
		{1, 512, 4, 6},
		{1, 4096, 2, 3},
	}
	for i, want := range wants {
		got := features[i].MustSize()
		if !reflect.DeepEqual(got, want) {
			t.Errorf("feature %v shape: got %v, want %v", i, got, want)
		}
	}

	for _, f := range features {
		f.MustDrop()
	}
	image.MustDrop()
}

// Eval-mode forwards are deterministic: dropout must be inactive.
func TestVGG16EncoderEvalDeterministic(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	enc := encoder.NewVGG16Encoder(vs.Root(), 0.5)

	image := ts.MustRand([]int64{1, 3, 32, 32}, gotch.Float, gotch.CPU)

	first := enc.ForwardAll(image, false)
	second := enc.ForwardAll(image, false)

	a := first[2].Float64Values()
	b := second[2].Float64Values()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("eval forwards differ at %v: %v vs %v", i, a[i], b[i])
		}
	}

	for _, f := range first {
		f.MustDrop()
	}
	for _, f := range second {
		f.MustDrop()
	}
	image.MustDrop()
}
