// Package dataset loads CSV training data and splits it into the
// network-input / target-output pairs the train package's trainers
// consume.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var loadFuncs = map[string]func(io.Reader) (*mat.Dense, error){
	".csv": LoadCSV,
}

// Dataset holds a loaded table of float64 rows.
type Dataset struct {
	mx *mat.Dense
}

// Load reads a dataset file at path. The file format is inferred from
// its extension.
func Load(path string) (*Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("dataset.Load: %w", err)
	}
	loadData, ok := loadFuncs[filepath.Ext(path)]
	if !ok {
		return nil, fmt.Errorf("dataset.Load: unsupported file type: %s", filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset.Load: %w", err)
	}
	defer f.Close()

	mx, err := loadData(f)
	if err != nil {
		return nil, fmt.Errorf("dataset.Load: %w", err)
	}
	return &Dataset{mx: mx}, nil
}

// Data returns the dataset's underlying matrix.
func (d *Dataset) Data() mat.Matrix { return d.mx }

// Dims returns the row, column dimensions of the underlying data.
func (d *Dataset) Dims() (int, int) { return d.mx.Dims() }

// Scale centers and normalizes the dataset's columns to zero mean and
// unit standard deviation, in place.
func (d *Dataset) Scale() {
	rows, cols := d.mx.Dims()
	col := make([]float64, rows)
	mean := make([]float64, cols)
	stdev := make([]float64, cols)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, d.mx)
		mean[j], stdev[j] = stat.MeanStdDev(col, nil)
	}
	d.mx.Apply(func(i, j int, x float64) float64 {
		if stdev[j] == 0 {
			return x - mean[j]
		}
		return (x - mean[j]) / stdev[j]
	}, d.mx)
}

// Split divides each row into a NeuronsIn-wide input prefix and the
// remaining columns as the target, returning them as the [][]float64
// pairs train.Trainer constructors expect.
func (d *Dataset) Split(neuronsIn int) (xs, ds [][]float64, err error) {
	rows, cols := d.mx.Dims()
	if neuronsIn <= 0 || neuronsIn >= cols {
		return nil, nil, fmt.Errorf("dataset.Split: input width %d out of range for %d columns", neuronsIn, cols)
	}
	xs = make([][]float64, rows)
	ds = make([][]float64, rows)
	for i := 0; i < rows; i++ {
		x := make([]float64, neuronsIn)
		for j := 0; j < neuronsIn; j++ {
			x[j] = d.mx.At(i, j)
		}
		target := make([]float64, cols-neuronsIn)
		for j := neuronsIn; j < cols; j++ {
			target[j-neuronsIn] = d.mx.At(i, j)
		}
		xs[i] = x
		ds[i] = target
	}
	return xs, ds, nil
}

// LoadCSV reads comma-separated float64 rows from r into a dense
// matrix. Every row must have the same number of fields.
func LoadCSV(r io.Reader) (*mat.Dense, error) {
	var rows, cols int
	data := make([]float64, 0)

	csvReader := csv.NewReader(r)
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			cols = len(record)
		}
		if cols != len(record) {
			return nil, fmt.Errorf("dataset.LoadCSV: inconsistent field count: row %d has %d, want %d", rows, len(record), cols)
		}
		for _, field := range record {
			f, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("dataset.LoadCSV: row %d: %w", rows, err)
			}
			data = append(data, f)
		}
		rows++
	}
	return mat.NewDense(rows, cols, data), nil
}
