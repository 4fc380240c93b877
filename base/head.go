package base

import "github.com/sugarme/gotch/nn"

// NewScoreHead creates the per-pixel scoring head: a 1x1, stride-1 convolution
// projecting cIn feature channels down to nclasses score channels. The
// projection stays linear - scores feed the upsampling path directly.
func NewScoreHead(p *nn.Path, cIn, nclasses int64) *nn.Conv2D {
	return Conv2d(p, cIn, nclasses, 1, 0, 1)
}
