package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sugarme/gotch/nn"

	"github.com/jarrahkula/roadseg/data"
	"github.com/jarrahkula/roadseg/fcn"
	"github.com/jarrahkula/roadseg/train"
)

// weightFile is the fixed checkpoint name under the model directory; the
// latest run overwrites it.
const weightFile = "roadseg.gt"

func runTrain() {
	// Provision the pretrained backbone and the dataset up front so missing
	// resources surface before any graph is built.
	backboneFile, err := data.EnsureBackbone(ModelDir, Backbone)
	if err != nil {
		log.Fatal(err)
	}
	roadDir, err := data.EnsureRoadData(DataDir)
	if err != nil {
		log.Fatal(err)
	}

	shape := data.Shape{Height: Height, Width: Width}
	ds, err := data.NewRoadDataset(filepath.Join(roadDir, "training"), shape)
	if err != nil {
		log.Fatal(err)
	}

	var valSrc train.BatchSource
	if ValFrames > 0 {
		valDs, trainDs, err := ds.Split(ValFrames)
		if err != nil {
			log.Fatal(err)
		}
		ds = trainDs
		valSampler, err := data.NewBatchSampler(valDs.Len(), BatchSize, false, false)
		if err != nil {
			log.Fatal(err)
		}
		valLoader, err := data.NewLoader(valDs, valSampler)
		if err != nil {
			log.Fatal(err)
		}
		valSrc = valLoader
		fmt.Printf("Holding out %v frames for validation\n", valDs.Len())
	}

	sampler, err := data.NewBatchSampler(ds.Len(), BatchSize, true, true)
	if err != nil {
		log.Fatal(err)
	}
	loader, err := data.NewLoader(ds, sampler)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Training on %v frames (%v batches/epoch)\n", ds.Len(), loader.BatchCount())

	vs := nn.NewVarStore(Device)
	net := fcn.NewRoadNet(vs.Root(), fcn.Config{Backbone: Backbone, Classes: int64(Classes), KeepProb: KeepProb})

	// A classification checkpoint covers the backbone features only; decoder
	// variables are missing there and train from scratch.
	missing, err := vs.LoadPartial(backboneFile)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Loaded pretrained backbone from %v (%v variables start fresh)\n", backboneFile, len(missing))

	cfg := train.DefaultConfig()
	cfg.Epochs = Epochs
	cfg.LR = LR
	cfg.Optimizer = OptStr
	cfg.Augment = !NoAug

	trainer, err := train.NewTrainer(vs, net, cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := trainer.Run(loader, valSrc); err != nil {
		log.Fatal(err)
	}

	if err := os.MkdirAll(ModelDir, 0755); err != nil {
		log.Fatal(err)
	}
	checkpoint := filepath.Join(ModelDir, weightFile)
	if err := vs.Save(checkpoint); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Saved checkpoint to %v\n", checkpoint)

	if err := os.MkdirAll(RunsDir, 0755); err != nil {
		log.Fatal(err)
	}
	hist := trainer.History()
	if err := hist.SaveCSV(filepath.Join(RunsDir, "history.csv")); err != nil {
		log.Fatal(err)
	}
	if err := hist.SavePlot(filepath.Join(RunsDir, "loss.png")); err != nil {
		log.Fatal(err)
	}
}
