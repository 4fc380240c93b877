package train

import (
	"fmt"

	ts "github.com/sugarme/gotch/tensor"
)

// Augment expands a minibatch to three geometric variants: a vertically
// mirrored copy, the originals, and a horizontally mirrored copy,
// concatenated along the batch axis in that order. Images and labels flip
// in lockstep so pixel labels stay aligned.
func Augment(images, labels *ts.Tensor) (*ts.Tensor, *ts.Tensor, error) {
	imageDims := len(images.MustSize())
	labelDims := len(labels.MustSize())
	if imageDims != 4 || labelDims != 4 {
		return nil, nil, fmt.Errorf("Expected 4D image and label batches. Got %v and %v dimensions.\n", imageDims, labelDims)
	}

	// [N C H W]: dim 2 flips top-bottom, dim 3 flips left-right
	vImages := images.MustFlip([]int64{2}, false)
	vLabels := labels.MustFlip([]int64{2}, false)
	hImages := images.MustFlip([]int64{3}, false)
	hLabels := labels.MustFlip([]int64{3}, false)

	augImages := ts.MustCat([]ts.Tensor{*vImages, *images, *hImages}, 0)
	augLabels := ts.MustCat([]ts.Tensor{*vLabels, *labels, *hLabels}, 0)

	vImages.MustDrop()
	vLabels.MustDrop()
	hImages.MustDrop()
	hLabels.MustDrop()

	return augImages, augLabels, nil
}
