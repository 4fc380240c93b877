package train

import (
	"os"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// History records the per-epoch mean training loss of a run.
type History struct {
	epochs []int
	losses []float64
}

// NewHistory creates an empty History.
func NewHistory() *History {
	return &History{}
}

// Record appends one epoch's mean loss.
func (h *History) Record(epoch int, loss float64) {
	h.epochs = append(h.epochs, epoch)
	h.losses = append(h.losses, loss)
}

// Losses returns the recorded losses in epoch order.
func (h *History) Losses() []float64 {
	return h.losses
}

// SaveCSV writes the history as a two-column csv (epoch, loss).
func (h *History) SaveCSV(path string) error {
	records := [][]string{{"epoch", "loss"}}
	for i := range h.epochs {
		records = append(records, []string{
			strconv.Itoa(h.epochs[i]),
			strconv.FormatFloat(h.losses[i], 'f', 6, 64),
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	df := dataframe.LoadRecords(records)

	return df.WriteCSV(f)
}

// LoadLosses reads the loss column back from a history csv.
func LoadLosses(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f, dataframe.HasHeader(true))
	if df.Err != nil {
		return nil, df.Err
	}

	return df.Col("loss").Float(), nil
}

// SavePlot draws the loss curve to a png.
func (h *History) SavePlot(path string) error {
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = "Training Loss"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "mean cross entropy"

	pts := make(plotter.XYs, len(h.epochs))
	for i := range h.epochs {
		pts[i].X = float64(h.epochs[i])
		pts[i].Y = h.losses[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
