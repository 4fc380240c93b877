package metric

import (
	"log"
	"reflect"

	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
)

// FlattenScores reshapes a [N C H W] score tensor to per-pixel rows
// [N*H*W, C]. The loss treats every pixel as an independent C-way
// classification.
func FlattenScores(x *ts.Tensor) *ts.Tensor {
	size := x.MustSize()
	if len(size) != 4 {
		log.Fatalf("Expected a 4D score tensor. Got %v dimensions.\n", len(size))
	}
	nclasses := size[1]

	return x.MustPermute([]int64{0, 2, 3, 1}, false).MustReshape([]int64{-1, nclasses}, true)
}

// SoftmaxCrossEntropy computes the mean per-pixel softmax cross entropy
// between raw class scores and a same-shaped target distribution, both
// [N C H W]. Targets are one-hot over C for hard labels. Log-softmax keeps
// the computation stable for large score magnitudes.
func SoftmaxCrossEntropy(scores, target *ts.Tensor) *ts.Tensor {
	if !reflect.DeepEqual(scores.MustSize(), target.MustSize()) {
		log.Fatalf("Mismatched score and target shapes: %v vs %v\n", scores.MustSize(), target.MustSize())
	}

	logit := FlattenScores(scores)
	label := FlattenScores(target)

	logp := logit.MustLogSoftmax(1, gotch.Float, true)
	plogp := logp.MustMul(label, true)
	label.MustDrop()

	// per-pixel cross entropy, then mean over all pixels
	pixel := plogp.MustSum1([]int64{1}, false, gotch.Double, true)
	loss := pixel.MustMean(gotch.Double, true).MustMul1(ts.FloatScalar(-1), true)

	return loss
}

// IoU computes intersection over union between predicted and target masks,
// both thresholded at 0.5.
func IoU(pred, target *ts.Tensor) float64 {
	pflat := pred.MustView([]int64{-1}, false)
	tflat := target.MustView([]int64{-1}, false)
	p := pflat.MustGt(ts.FloatScalar(0.5), true)
	t := tflat.MustGt(ts.FloatScalar(0.5), true)

	ptMul := p.MustMul(t, false)
	overlap := ptMul.MustSum(gotch.Double, true).Float64Values()[0]
	union := p.MustSum(gotch.Double, true).Float64Values()[0] + t.MustSum(gotch.Double, true).Float64Values()[0] - overlap

	if union == 0 {
		return 1.0
	}

	return overlap / union
}

// DiceCoeff measures overlap between predicted and target masks, both
// thresholded at 0.5.
// Ref. http://campar.in.tum.de/pub/milletari2016Vnet/milletari2016Vnet.pdf
func DiceCoeff(pred, target *ts.Tensor) float64 {
	pflat := pred.MustView([]int64{-1}, false)
	tflat := target.MustView([]int64{-1}, false)
	p := pflat.MustGt(ts.FloatScalar(0.5), true)
	t := tflat.MustGt(ts.FloatScalar(0.5), true)

	ptMul := p.MustMul(t, false)
	overlap := ptMul.MustSum(gotch.Double, true).Float64Values()[0]
	union := p.MustSum(gotch.Double, true).Float64Values()[0] + t.MustSum(gotch.Double, true).Float64Values()[0]

	return (2 * overlap) / (union + 0.001)
}

// PixelAccuracy is the fraction of pixels whose thresholded prediction
// agrees with the target mask.
func PixelAccuracy(pred, target *ts.Tensor) float64 {
	pflat := pred.MustView([]int64{-1}, false)
	tflat := target.MustView([]int64{-1}, false)
	p := pflat.MustGt(ts.FloatScalar(0.5), true)
	t := tflat.MustGt(ts.FloatScalar(0.5), true)

	eq := p.MustEq1(t, true)
	t.MustDrop()
	acc := eq.MustTotype(gotch.Float, true).MustMean(gotch.Double, true)
	retVal := acc.Float64Values()[0]
	acc.MustDrop()

	return retVal
}
