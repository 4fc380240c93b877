package encoder

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/jarrahkula/roadseg/base"
)

// VGG16Encoder is the classification backbone reworked as a fully
// convolutional feature extractor. The two fully connected classifier layers
// are replaced by convolutions (fc6: 7x7, fc7: 1x1) so the network accepts
// any input size divisible by 32. ForwardAll taps the net after the third
// and fourth pooling stages and after fc7, giving feature maps at 1/8, 1/16
// and 1/32 of the input resolution with 256, 512 and 4096 channels.
type VGG16Encoder struct {
	block3 *nn.SequentialT // conv1_1 .. pool3
	block4 *nn.SequentialT // conv4_1 .. pool4
	block5 *nn.SequentialT // conv5_1 .. pool5
	fc6    *nn.SequentialT
	fc7    *nn.SequentialT
	drop   float64 // dropout rate after fc6 and fc7
}

// VGG16Channels lists the channel depths of the three returned feature maps,
// finest to coarsest.
var VGG16Channels = []int64{256, 512, 4096}

// ForwardAll implements Encoder interface for VGG16Encoder. Dropout after
// fc6 and fc7 is active in train mode only.
func (e *VGG16Encoder) ForwardAll(x *ts.Tensor, train bool) []*ts.Tensor {
	xn := rgbNormalize(x)
	f3 := e.block3.ForwardT(xn, train)
	xn.MustDrop()
	f4 := e.block4.ForwardT(f3, train)
	p5 := e.block5.ForwardT(f4, train)
	c6 := e.fc6.ForwardT(p5, train)
	p5.MustDrop()
	d6 := c6.MustDropout(e.drop, train, true)
	c7 := e.fc7.ForwardT(d6, train)
	d6.MustDrop()
	f7 := c7.MustDropout(e.drop, train, true)

	return []*ts.Tensor{f3, f4, f7}
}

// NewVGG16Encoder creates a VGG16 feature extractor with keepProb dropout
// keep probability on the fc layers. Conv variables are named by their
// torchvision feature index ("features.<idx>") so pretrained torchvision
// weights load over them; fc6/fc7 are absent from classification checkpoints
// and train from scratch.
func NewVGG16Encoder(p *nn.Path, keepProb float64) *VGG16Encoder {
	fp := p.Sub("features")
	var idx int64

	block3 := nn.SeqT()
	c := convStage(fp, block3, &idx, 3, 64, 64)
	c = convStage(fp, block3, &idx, c, 128, 128)
	c = convStage(fp, block3, &idx, c, 256, 256, 256)

	block4 := nn.SeqT()
	c = convStage(fp, block4, &idx, c, 512, 512, 512)

	block5 := nn.SeqT()
	c = convStage(fp, block5, &idx, c, 512, 512, 512)

	fc6 := base.Conv2dRelu(p.Sub("fc6"), c, 4096, 7, 3, 1)
	fc7 := base.Conv2dRelu(p.Sub("fc7"), 4096, 4096, 1, 0, 1)

	return &VGG16Encoder{
		block3: block3,
		block4: block4,
		block5: block5,
		fc6:    fc6,
		fc7:    fc7,
		drop:   1.0 - keepProb,
	}
}

// convStage appends 3x3 conv+relu pairs for each width followed by one
// 2x2/s2 max-pool, naming conv subpaths by their torchvision feature index.
// Each conv takes two indexes (conv, relu), the pool takes one.
func convStage(fp *nn.Path, seq *nn.SequentialT, idx *int64, cIn int64, widths ...int64) int64 {
	for _, w := range widths {
		seq.Add(base.Conv2dRelu(fp.Sub(fmt.Sprint(*idx)), cIn, w, 3, 1, 1))
		*idx += 2
		cIn = w
	}
	seq.AddFn(nn.NewFunc(func(xs *ts.Tensor) *ts.Tensor {
		return xs.MustMaxPool2d([]int64{2, 2}, []int64{2, 2}, []int64{0, 0}, []int64{1, 1}, false, false)
	}))
	*idx++

	return cIn
}
