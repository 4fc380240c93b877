package main

import (
	"fmt"
	"image"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
	"github.com/sugarme/gotch/vision"

	"github.com/jarrahkula/roadseg/data"
	"github.com/jarrahkula/roadseg/fcn"
)

// runInfer overlays predicted road pixels on the held-out test frames and
// writes the composites under a fresh runs/<timestamp> directory.
func runInfer() {
	vs := nn.NewVarStore(Device)
	net := fcn.NewRoadNet(vs.Root(), fcn.Config{Backbone: Backbone, Classes: int64(Classes), KeepProb: KeepProb})

	checkpoint := filepath.Join(ModelDir, weightFile)
	if err := vs.Load(checkpoint); err != nil {
		log.Fatal(err)
	}

	roadDir, err := data.EnsureRoadData(DataDir)
	if err != nil {
		log.Fatal(err)
	}
	testDir := filepath.Join(roadDir, "testing", "image_2")
	files, err := ioutil.ReadDir(testDir)
	if err != nil {
		log.Fatal(err)
	}

	outDir := filepath.Join(RunsDir, fmt.Sprintf("%v", time.Now().Unix()))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		log.Fatal(err)
	}

	shape := data.Shape{Height: Height, Width: Width}
	start := time.Now()
	count := 0
	for _, f := range files {
		if f.IsDir() {
			continue
		}

		img, err := data.ReadImage(filepath.Join(testDir, f.Name()))
		if err != nil {
			log.Fatal(err)
		}
		frame := imaging.Resize(img, shape.Width, shape.Height, imaging.Lanczos)

		road, err := predictRoad(net, frame)
		if err != nil {
			log.Fatal(err)
		}

		if SaveProb {
			probImg := road.MustMul1(ts.FloatScalar(255), false)
			if err := vision.Save(probImg, filepath.Join(outDir, "prob_"+f.Name())); err != nil {
				log.Fatal(err)
			}
			probImg.MustDrop()
		}

		vals := road.Float64Values()
		road.MustDrop()
		mask := make([]bool, len(vals))
		for i, v := range vals {
			mask[i] = v > 0.5
		}

		composite := overlayMask(frame, mask)
		if err := savePNG(composite, filepath.Join(outDir, f.Name())); err != nil {
			log.Fatal(err)
		}
		count++
	}

	fmt.Printf("Wrote %v overlays to %v\n", count, outDir)
	fmt.Printf("Duration: %.2f (min)\n", time.Since(start).Minutes())
}

// predictRoad runs the network on one frame and returns its road
// probability plane [1 H W] with values in [0,1].
func predictRoad(net ts.ModuleT, frame image.Image) (*ts.Tensor, error) {
	x, err := data.ImageTensor(frame)
	if err != nil {
		return nil, err
	}
	input := x.MustUnsqueeze(0, true).MustTo(Device, true)

	var road *ts.Tensor
	ts.NoGrad(func() {
		logit := net.ForwardT(input, false)
		prob := logit.MustSoftmax(1, gotch.Float, true)
		road = prob.MustSelect(1, 1, true)
	})
	input.MustDrop()

	return road, nil
}
