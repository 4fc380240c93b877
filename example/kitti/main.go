package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/sugarme/gotch"
)

// flag variables
var (
	DataDir  string
	RunsDir  string
	ModelDir string
	OptStr   string
	Backbone string
	Cuda     bool
	task     string
	Device   gotch.Device
)

// hyperparameters
var (
	Epochs    int     // passes over the training set
	BatchSize int     // source batch size before augmentation
	LR        float64 // learning rate
	KeepProb  float64 // backbone fc dropout keep probability
	Classes   int     // label classes: background and road
	Height    int     // working image height
	Width     int     // working image width
	ValFrames int     // training frames held out for validation
	NoAug     bool    // disable flip augmentation
	SaveProb  bool    // also save raw road probability maps at inference
)

func init() {
	flag.StringVar(&DataDir, "data", "./data", "specify dataset directory")
	flag.StringVar(&RunsDir, "runs", "./runs", "specify output directory for inference runs")
	flag.StringVar(&ModelDir, "models", "./models", "specify model weight directory")
	flag.BoolVar(&Cuda, "cuda", false, "specify whether using CUDA or not.")
	flag.StringVar(&task, "task", "train", "specify task to run: train, infer, stats")
	flag.IntVar(&Epochs, "epochs", 100, "specify number of training epochs")
	flag.IntVar(&BatchSize, "batch", 4, "specify batch size")
	flag.Float64Var(&LR, "lr", 1e-4, "specify learning rate")
	flag.Float64Var(&KeepProb, "keep", 0.5, "specify dropout keep probability")
	flag.IntVar(&Classes, "classes", 2, "specify number of label classes")
	flag.IntVar(&Height, "height", 160, "specify working image height")
	flag.IntVar(&Width, "width", 576, "specify working image width")
	flag.StringVar(&OptStr, "opt", "adam", "specify optimizer type")
	flag.StringVar(&Backbone, "backbone", "vgg16", "specify backbone: vgg16, resnet34")
	flag.IntVar(&ValFrames, "val", 0, "hold out n training frames for validation (0 disables)")
	flag.BoolVar(&NoAug, "noaug", false, "disable flip augmentation")
	flag.BoolVar(&SaveProb, "prob", false, "also save road probability maps at inference")
}

func main() {
	flag.Parse()

	DataDir = absPath(DataDir)
	RunsDir = absPath(RunsDir)
	ModelDir = absPath(ModelDir)

	Device = gotch.CPU
	if Cuda {
		Device = gotch.NewCuda().CudaIfAvailable()
	}

	switch task {
	case "train":
		runTrain()
	case "infer":
		runInfer()
	case "stats":
		runStats()
	default:
		err := fmt.Errorf("Unknown 'task' name. Please specify valid 'task' flag to run.\n")
		panic(err)
	}
}

// helper to get absolute file path
func absPath(p string) string {
	fullpath, err := filepath.Abs(p)
	if err != nil {
		log.Fatal(err)
	}
	return fullpath
}
