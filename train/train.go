package train

import (
	"fmt"
	"log"
	"time"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/jarrahkula/roadseg/data"
	"github.com/jarrahkula/roadseg/metric"
)

// BatchSource yields one pass over the training set between Resets. The
// trainer requests a fresh pass per epoch.
type BatchSource interface {
	HasNext() bool
	Next() (*data.Batch, error)
	Reset()
}

// Config holds the training hyperparameters.
type Config struct {
	Epochs    int     // passes over the training set
	LR        float64 // optimizer learning rate
	Optimizer string  // "adam" or "sgd"
	Augment   bool    // expand every batch 3x with mirrored copies
	LogEvery  int     // progress line every n-th batch of an epoch
}

// DefaultConfig returns the hyperparameters the road labeling task trains
// with.
func DefaultConfig() Config {
	return Config{
		Epochs:    100,
		LR:        1e-4,
		Optimizer: "adam",
		Augment:   true,
		LogEvery:  10,
	}
}

// Trainer owns one training run: the network, its parameter store and
// optimizer, and the run counters.
type Trainer struct {
	net    ts.ModuleT
	vs     *nn.VarStore
	opt    *nn.Optimizer
	cfg    Config
	device gotch.Device
	steps  int
	hist   *History
}

// NewTrainer builds the optimizer over vs per cfg and wraps net for
// training. vs must hold every trainable parameter of net.
func NewTrainer(vs *nn.VarStore, net ts.ModuleT, cfg Config) (*Trainer, error) {
	if cfg.Epochs <= 0 {
		return nil, fmt.Errorf("Expected a positive epoch count. Got %v.\n", cfg.Epochs)
	}
	if cfg.LR <= 0 {
		return nil, fmt.Errorf("Expected a positive learning rate. Got %v.\n", cfg.LR)
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 10
	}

	var opt *nn.Optimizer
	var err error
	switch cfg.Optimizer {
	case "adam", "":
		opt, err = nn.DefaultAdamConfig().Build(vs, cfg.LR)
	case "sgd":
		opt, err = nn.DefaultSGDConfig().Build(vs, cfg.LR)
	default:
		err = fmt.Errorf("Unspecified/Invalid Optimizer option: '%v'.\n", cfg.Optimizer)
	}
	if err != nil {
		return nil, err
	}

	return &Trainer{
		net:    net,
		vs:     vs,
		opt:    opt,
		cfg:    cfg,
		device: vs.Device(),
		hist:   NewHistory(),
	}, nil
}

// Steps returns how many optimizer steps have run.
func (t *Trainer) Steps() int {
	return t.steps
}

// History returns the per-epoch loss record of the run so far.
func (t *Trainer) History() *History {
	return t.hist
}

// Run trains for cfg.Epochs passes over src with one optimizer step per
// source batch. Augmentation triples a batch before the step but never
// changes the step count. A batch failure stops the run. An optional
// held-out source is evaluated after every epoch.
func (t *Trainer) Run(src BatchSource, valOpt ...BatchSource) error {
	var val BatchSource
	if len(valOpt) > 0 {
		val = valOpt[0]
	}

	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		start := time.Now()
		var losses []float64

		src.Reset()
		for b := 0; src.HasNext(); b++ {
			batch, err := src.Next()
			if err != nil {
				return err
			}

			lossVal, err := t.step(batch)
			if err != nil {
				return err
			}
			losses = append(losses, lossVal)

			if b%t.cfg.LogEvery == 0 {
				fmt.Printf("epoch %v batch %v loss=%.3f\n", epoch, b, lossVal)
			}
		}

		mean := meanOf(losses)
		t.hist.Record(epoch, mean)
		log.Printf("epoch %v done: mean loss %.4f over %v batches (%.2f min)\n",
			epoch, mean, len(losses), time.Since(start).Minutes())

		if val != nil {
			score, err := t.Validate(val)
			if err != nil {
				return err
			}
			log.Printf("epoch %v validation: loss %.4f iou %.4f dice %.4f acc %.4f\n",
				epoch, score.Loss, score.IoU, score.Dice, score.Accuracy)
		}
	}

	return nil
}

// Score aggregates evaluation results over one dataset pass. The mask
// metrics compare thresholded road planes.
type Score struct {
	Loss     float64
	IoU      float64
	Dice     float64
	Accuracy float64
}

// Validate evaluates the network over one pass of src in eval mode without
// touching any parameter: mean cross entropy plus IoU, Dice and pixel
// accuracy of the predicted road plane.
func (t *Trainer) Validate(src BatchSource) (*Score, error) {
	var losses, ious, dices, accs []float64

	src.Reset()
	for src.HasNext() {
		batch, err := src.Next()
		if err != nil {
			return nil, err
		}

		input := batch.Images.MustTo(t.device, true)
		target := batch.Labels.MustTo(t.device, true)

		var logit *ts.Tensor
		ts.NoGrad(func() {
			logit = t.net.ForwardT(input, false)
		})
		input.MustDrop()

		loss := metric.SoftmaxCrossEntropy(logit, target)
		losses = append(losses, loss.Float64Values()[0])
		loss.MustDrop()

		road := logit.MustSoftmax(1, gotch.Float, true).MustSelect(1, 1, true)
		roadTarget := target.MustSelect(1, 1, true)
		ious = append(ious, metric.IoU(road, roadTarget))
		dices = append(dices, metric.DiceCoeff(road, roadTarget))
		accs = append(accs, metric.PixelAccuracy(road, roadTarget))

		road.MustDrop()
		roadTarget.MustDrop()
	}

	return &Score{
		Loss:     meanOf(losses),
		IoU:      meanOf(ious),
		Dice:     meanOf(dices),
		Accuracy: meanOf(accs),
	}, nil
}

// step runs one optimizer step on a source batch, augmenting first when
// configured. The batch tensors are consumed.
func (t *Trainer) step(batch *data.Batch) (float64, error) {
	images, labels := batch.Images, batch.Labels
	if t.cfg.Augment {
		augImages, augLabels, err := Augment(images, labels)
		batch.Drop()
		if err != nil {
			return 0, err
		}
		images, labels = augImages, augLabels
	}

	input := images.MustTo(t.device, true)
	target := labels.MustTo(t.device, true)

	logit := t.net.ForwardT(input, true)
	input.MustDrop()
	loss := metric.SoftmaxCrossEntropy(logit, target)
	logit.MustDrop()
	target.MustDrop()

	t.opt.BackwardStep(loss)
	t.steps++

	lossVal := loss.Float64Values()[0]
	loss.MustDrop()

	return lossVal, nil
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}

	var sum float64
	for _, x := range xs {
		sum += x
	}

	return sum / float64(len(xs))
}
