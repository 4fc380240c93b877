package base

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// Conv2d creates Conv2D module.
func Conv2d(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}

	return nn.NewConv2D(p, cIn, cOut, ksize, config)
}

// Conv2dNoBias creates Conv2D with no bias.
func Conv2dNoBias(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Bias = false
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}

	return nn.NewConv2D(p, cIn, cOut, ksize, config)
}

// ConvTranspose2d creates ConvTranspose2D module, a learned upsampling.
// Output spatial size is (in-1)*stride - 2*padding + ksize, so ksize = 2*stride
// with padding = stride/2 scales the input by exactly stride.
func ConvTranspose2d(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.ConvTranspose2D {
	config := nn.DefaultConvTranspose2DConfig()
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}

	return nn.NewConvTranspose2D(p, cIn, cOut, ksize, config)
}

// Conv2dRelu creates a SequentialT composing of a biased Conv2D and a ReLU
// activation. No batch norm - the plain VGG block. The conv variables live
// directly at p so pretrained weight names map over unchanged.
func Conv2dRelu(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.SequentialT {
	seq := nn.SeqT()
	seq.Add(Conv2d(p, cIn, cOut, ksize, padding, stride))
	seq.AddFn(nn.NewFunc(func(xs *ts.Tensor) *ts.Tensor {
		return xs.MustRelu(false)
	}))

	return seq
}
