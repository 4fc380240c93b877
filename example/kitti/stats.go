package main

import (
	"fmt"
	"log"
	"math"
	"path/filepath"

	"github.com/jarrahkula/roadseg/train"
)

// runStats summarizes the most recent training history.
func runStats() {
	path := filepath.Join(RunsDir, "history.csv")
	losses, err := train.LoadLosses(path)
	if err != nil {
		log.Fatal(err)
	}
	if len(losses) == 0 {
		log.Fatalf("No epochs recorded in %v\n", path)
	}

	best := math.Inf(1)
	bestEpoch := 0
	var sum float64
	for i, l := range losses {
		sum += l
		if l < best {
			best = l
			bestEpoch = i
		}
	}

	fmt.Printf("epochs: %v\n", len(losses))
	fmt.Printf("mean loss: %.4f\n", sum/float64(len(losses)))
	fmt.Printf("best loss: %.4f (epoch %v)\n", best, bestEpoch)
	fmt.Printf("final loss: %.4f\n", losses[len(losses)-1])
}
