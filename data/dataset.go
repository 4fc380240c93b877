package data

import (
	"fmt"
	"math/rand"

	ts "github.com/sugarme/gotch/tensor"
)

// Sample is one training example: an image tensor [3 H W] scaled to [0,1]
// and its per-pixel class planes [C H W].
type Sample struct {
	Image *ts.Tensor
	Label *ts.Tensor
}

// Dataset is an indexable source of samples.
type Dataset interface {
	Len() int
	Item(idx int) (*Sample, error)
}

// Batch is a stacked minibatch: Images [N 3 H W], Labels [N C H W].
type Batch struct {
	Images *ts.Tensor
	Labels *ts.Tensor
}

// Drop releases both batch tensors.
func (b *Batch) Drop() {
	b.Images.MustDrop()
	b.Labels.MustDrop()
}

// BatchSampler yields dataset index batches covering the dataset once per
// pass. A shuffling sampler reorders on every Reset, so each pass sees a
// fresh permutation.
type BatchSampler struct {
	n         int
	batchSize int
	dropLast  bool
	shuffle   bool
	order     []int
	next      int
}

// NewBatchSampler creates a BatchSampler over a dataset of n samples.
// With dropLast, a trailing short batch is skipped.
func NewBatchSampler(n, batchSize int, dropLast, shuffle bool) (*BatchSampler, error) {
	if n <= 0 {
		return nil, fmt.Errorf("Expected a non-empty dataset. Got size %v.\n", n)
	}
	if batchSize <= 0 || batchSize > n {
		return nil, fmt.Errorf("Invalid batch size %v for a dataset of size %v.\n", batchSize, n)
	}

	s := &BatchSampler{
		n:         n,
		batchSize: batchSize,
		dropLast:  dropLast,
		shuffle:   shuffle,
		order:     make([]int, n),
	}
	for i := range s.order {
		s.order[i] = i
	}
	s.Reset()

	return s, nil
}

// Reset starts a new pass over the dataset.
func (s *BatchSampler) Reset() {
	if s.shuffle {
		rand.Shuffle(s.n, func(i, j int) {
			s.order[i], s.order[j] = s.order[j], s.order[i]
		})
	}
	s.next = 0
}

// HasNext returns whether the current pass has another batch.
func (s *BatchSampler) HasNext() bool {
	remain := s.n - s.next
	if s.dropLast {
		return remain >= s.batchSize
	}

	return remain > 0
}

// Next returns the next batch of dataset indexes.
func (s *BatchSampler) Next() []int {
	end := s.next + s.batchSize
	if end > s.n {
		end = s.n
	}
	batch := s.order[s.next:end]
	s.next = end

	return batch
}

// BatchCount returns the number of batches one pass yields.
func (s *BatchSampler) BatchCount() int {
	if s.dropLast {
		return s.n / s.batchSize
	}

	return (s.n + s.batchSize - 1) / s.batchSize
}

// Loader walks a dataset in sampler order and stacks samples into batches.
type Loader struct {
	ds      Dataset
	sampler *BatchSampler
}

// NewLoader creates a Loader pairing a dataset with a sampler of matching
// size.
func NewLoader(ds Dataset, sampler *BatchSampler) (*Loader, error) {
	if ds.Len() != sampler.n {
		return nil, fmt.Errorf("Mismatched dataset (%v) and sampler (%v) sizes.\n", ds.Len(), sampler.n)
	}

	return &Loader{ds: ds, sampler: sampler}, nil
}

// HasNext returns whether the current pass has another batch.
func (l *Loader) HasNext() bool {
	return l.sampler.HasNext()
}

// Reset starts a new pass.
func (l *Loader) Reset() {
	l.sampler.Reset()
}

// BatchCount returns the number of batches one pass yields.
func (l *Loader) BatchCount() int {
	return l.sampler.BatchCount()
}

// Next loads the next batch of samples and stacks them along a new leading
// batch axis.
func (l *Loader) Next() (*Batch, error) {
	var images []ts.Tensor
	var labels []ts.Tensor
	for _, idx := range l.sampler.Next() {
		sample, err := l.ds.Item(idx)
		if err != nil {
			for _, x := range images {
				x.MustDrop()
			}
			for _, x := range labels {
				x.MustDrop()
			}
			return nil, err
		}
		images = append(images, *sample.Image)
		labels = append(labels, *sample.Label)
	}

	imageTs := ts.MustStack(images, 0)
	for _, x := range images {
		x.MustDrop()
	}
	labelTs := ts.MustStack(labels, 0)
	for _, x := range labels {
		x.MustDrop()
	}

	return &Batch{Images: imageTs, Labels: labelTs}, nil
}
