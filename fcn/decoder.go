package fcn

import (
	"log"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/jarrahkula/roadseg/base"
)

// upStage describes one learned upsampling hop: a transposed convolution
// with the given kernel, stride and padding. The paddings keep every hop an
// exact stride-times scaling of the spatial size.
type upStage struct {
	name   string
	ksize  int64
	stride int64
	pad    int64
}

// fcn8sStages is the fixed upsampling path of FCN-8s: two 2x hops, each
// followed by a skip fusion, then one 8x hop to full input resolution.
var fcn8sStages = []upStage{
	{name: "up7", ksize: 4, stride: 2, pad: 1},
	{name: "up4", ksize: 4, stride: 2, pad: 1},
	{name: "heatmap", ksize: 16, stride: 8, pad: 4},
}

// Decoder projects the three backbone feature maps to per-pixel class
// scores and fuses them through learned transposed convolutions into a
// full-resolution class heat-map (FCN-8s, https://arxiv.org/abs/1411.4038).
type Decoder struct {
	score3 *nn.Conv2D // finest map projection
	score4 *nn.Conv2D
	score7 *nn.Conv2D // coarsest map projection
	ups    []*nn.ConvTranspose2D
}

// NewDecoder creates a Decoder for a backbone exposing three feature maps
// of the given channel depths, finest to coarsest.
func NewDecoder(p *nn.Path, channels []int64, nclasses int64) *Decoder {
	if len(channels) != 3 {
		log.Fatalf("Expected channel depths for 3 feature maps. Got %v\n", len(channels))
	}
	if nclasses < 1 {
		log.Fatalf("Expected at least 1 class. Got %v\n", nclasses)
	}

	dec := &Decoder{
		score3: base.NewScoreHead(p.Sub("score3"), channels[0], nclasses),
		score4: base.NewScoreHead(p.Sub("score4"), channels[1], nclasses),
		score7: base.NewScoreHead(p.Sub("score7"), channels[2], nclasses),
	}
	for _, s := range fcn8sStages {
		dec.ups = append(dec.ups, base.ConvTranspose2d(p.Sub(s.name), nclasses, nclasses, s.ksize, s.pad, s.stride))
	}

	return dec
}

// ForwardFeatures fuses the backbone feature maps into the class heat-map.
// features holds the three maps finest to coarsest, as Encoder.ForwardAll
// returns them; sizes must be successive halvings, as a /8, /16, /32
// backbone produces. Fusion is additive: upsampled coarse scores plus the
// skip projection of the next finer map. The result is at 8x the finest
// map, the original network input size. Scores stay linear end to end.
func (d *Decoder) ForwardFeatures(features []*ts.Tensor, train bool) *ts.Tensor {
	if len(features) != 3 {
		log.Fatalf("Expected features of 3 tensors. Got %v\n", len(features))
	}

	s3 := d.score3.ForwardT(features[0], train)
	s4 := d.score4.ForwardT(features[1], train)
	s7 := d.score7.ForwardT(features[2], train)

	up7 := d.ups[0].Forward(s7) // scores at 1/16
	s7.MustDrop()
	skip4 := s4.MustAdd(up7, true)
	up7.MustDrop()
	up4 := d.ups[1].Forward(skip4) // scores at 1/8
	skip4.MustDrop()
	skip3 := s3.MustAdd(up4, true)
	up4.MustDrop()
	heat := d.ups[2].Forward(skip3) // full resolution
	skip3.MustDrop()

	return heat
}
