// Package dataset loads numeric training data from delimited text files.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rftune/pkg/errors"
)

// CSVOptions controls how a file is parsed.
type CSVOptions struct {
	// Sep is the field separator. Default ','.
	Sep rune
	// Header skips the first record and uses it as feature names.
	Header bool
	// LabelColumn is the index of the label column; negative values count
	// from the end (-1 is the last column).
	LabelColumn int
}

// DefaultCSVOptions returns comma separated, headerless data labelled by the last column.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Sep: ',', LabelColumn: -1}
}

// Dataset is a feature matrix with its label column.
type Dataset struct {
	X            *mat.Dense
	Y            *mat.Dense
	FeatureNames []string
}

// Dims returns the number of samples and features.
func (d *Dataset) Dims() (nSamples, nFeatures int) {
	return d.X.Dims()
}

// LoadCSV reads every record of r. All fields must parse as float64.
func LoadCSV(r io.Reader, opts CSVOptions) (*Dataset, error) {
	reader := csv.NewReader(r)
	if opts.Sep != 0 {
		reader.Comma = opts.Sep
	}
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	var (
		header []string
		values []float64
		labels []float64
		nCols  = -1
		label  int
		line   int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read csv")
		}
		line++
		if nCols < 0 {
			nCols = len(record)
			if nCols < 2 {
				return nil, errors.NewValueError("LoadCSV", "need at least one feature and one label column")
			}
			label = opts.LabelColumn
			if label < 0 {
				label += nCols
			}
			if label < 0 || label >= nCols {
				return nil, errors.NewValidationError("label_column", "out of range", opts.LabelColumn)
			}
			if opts.Header {
				header = make([]string, 0, nCols-1)
				for j, name := range record {
					if j != label {
						header = append(header, strings.TrimSpace(name))
					}
				}
				continue
			}
		}
		for j, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d, column %d", line, j+1)
			}
			if j == label {
				labels = append(labels, v)
			} else {
				values = append(values, v)
			}
		}
	}
	if len(labels) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	if header == nil {
		header = make([]string, nCols-1)
		for j := range header {
			header[j] = fmt.Sprintf("x%d", j)
		}
	}
	return &Dataset{
		X:            mat.NewDense(len(labels), nCols-1, values),
		Y:            mat.NewDense(len(labels), 1, labels),
		FeatureNames: header,
	}, nil
}

// LoadCSVFile opens path and calls LoadCSV.
func LoadCSVFile(path string, opts CSVOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return LoadCSV(f, opts)
}
