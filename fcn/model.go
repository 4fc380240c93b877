package fcn

import (
	"log"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/jarrahkula/roadseg/encoder"
)

// Config holds the network construction options.
type Config struct {
	Backbone string  // "vgg16" or "resnet34"
	Classes  int64   // class planes of the heat-map
	KeepProb float64 // backbone fc dropout keep probability (vgg16 only)
}

// DefaultConfig returns the road labeling defaults: a VGG16 backbone, two
// classes (background, road) and 0.5 keep probability.
func DefaultConfig() Config {
	return Config{
		Backbone: "vgg16",
		Classes:  2,
		KeepProb: 0.5,
	}
}

// RoadNet is the per-pixel road labeling network: a pretrained feature
// extractor under an FCN-8s decoder.
type RoadNet struct {
	encoder encoder.Encoder
	decoder *Decoder
}

// NewRoadNet creates RoadNet with a fresh backbone per cfg. Pretrained
// backbone weights are loaded afterwards through the VarStore holding p.
func NewRoadNet(p *nn.Path, cfg Config) *RoadNet {
	var enc encoder.Encoder
	var channels []int64
	switch cfg.Backbone {
	case "vgg16", "":
		enc = encoder.NewVGG16Encoder(p, cfg.KeepProb)
		channels = encoder.VGG16Channels
	case "resnet34":
		enc = encoder.NewResNet34Encoder(p)
		channels = encoder.ResNet34Channels
	default:
		log.Fatalf("Unsupported backbone: %v\n", cfg.Backbone)
	}

	return NewModel(p, enc, channels, cfg.Classes)
}

// NewModel creates a segmentation network from any backbone. The decoder is
// sized by the backbone's reported feature channels.
func NewModel(p *nn.Path, enc encoder.Encoder, channels []int64, nclasses int64) *RoadNet {
	dec := NewDecoder(p.Sub("decoder"), channels, nclasses)

	return &RoadNet{
		encoder: enc,
		decoder: dec,
	}
}

// ForwardT implements ts.ModuleT: images [N 3 H W] scaled to [0,1] map to a
// class score heat-map [N classes H W]. H and W must be divisible by 32.
func (n *RoadNet) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	features := n.encoder.ForwardAll(x, train)
	heat := n.decoder.ForwardFeatures(features, train)
	for _, f := range features {
		f.MustDrop()
	}

	return heat
}
