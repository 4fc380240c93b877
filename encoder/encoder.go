package encoder

import (
	ts "github.com/sugarme/gotch/tensor"
)

// Encoder is the backbone interface for an image segmentation model.
// ForwardAll returns the feature maps a decoder fuses, ordered finest
// (largest spatial size) to coarsest.
type Encoder interface {
	ForwardAll(x *ts.Tensor, train bool) []*ts.Tensor
}

func rgbNormalize(x *ts.Tensor) *ts.Tensor {
	meanVals := []float32{0.485, 0.456, 0.406} // image RGB mean
	sdVals := []float32{0.229, 0.224, 0.225}   // image RGB standard error

	mean := ts.MustOfSlice(meanVals).MustView([]int64{1, 3, 1, 1}, true)
	sd := ts.MustOfSlice(sdVals).MustView([]int64{1, 3, 1, 1}, true)

	// x = (x - mean)/sd
	n := x.MustSub(mean, false).MustDiv(sd, true)
	mean.MustDrop()
	sd.MustDrop()

	return n
}
