package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gonum/matrix/mat64"

	"github.com/harleyjean/rstanarm/glm"
)

// dataset is a CSV file parsed into named numeric columns, in file
// order.
type dataset struct {
	names   []string
	columns map[string][]float64
}

func readDataset(r io.Reader) (*dataset, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read header: %v", err)
	}
	d := &dataset{
		names:   header,
		columns: make(map[string][]float64, len(header)),
	}
	for _, name := range header {
		if _, ok := d.columns[name]; ok {
			return nil, fmt.Errorf("duplicate column: %s", name)
		}
		d.columns[name] = nil
	}
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row++
		for j, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %s: %v", row, header[j], err)
			}
			d.columns[header[j]] = append(d.columns[header[j]], v)
		}
	}
	if row == 0 {
		return nil, fmt.Errorf("no observations")
	}
	return d, nil
}

func (d *dataset) column(name string) ([]float64, error) {
	col, ok := d.columns[name]
	if !ok {
		return nil, fmt.Errorf("no column named %s", name)
	}
	return col, nil
}

// modelData assembles the response, model matrix and optional columns
// into fitting data. An empty predictor list means every column except
// the response (and the weight/trial columns); an intercept column is
// prepended unless the model is ordinal.
func (d *dataset) modelData(response string, predictors []string,
	weights, trials string, intercept bool, ncat int) (*glm.Data, []string, error) {
	y, err := d.column(response)
	if err != nil {
		return nil, nil, err
	}

	if len(predictors) == 0 {
		for _, name := range d.names {
			if name == response || name == weights || name == trials {
				continue
			}
			predictors = append(predictors, name)
		}
	}

	n := len(y)
	p := len(predictors)
	offset := 0
	if intercept {
		offset = 1
	}
	x := mat64.NewDense(n, p+offset, nil)
	names := make([]string, p+offset)
	if intercept {
		names[0] = "(Intercept)"
		for i := 0; i < n; i++ {
			x.Set(i, 0, 1)
		}
	}
	for j, name := range predictors {
		col, err := d.column(name)
		if err != nil {
			return nil, nil, err
		}
		names[j+offset] = name
		for i := 0; i < n; i++ {
			x.Set(i, j+offset, col[i])
		}
	}

	data := &glm.Data{Y: y, X: x, NCat: ncat}
	if weights != "" {
		if data.Weights, err = d.column(weights); err != nil {
			return nil, nil, err
		}
	}
	if trials != "" {
		if data.Trials, err = d.column(trials); err != nil {
			return nil, nil, err
		}
	}
	return data, names, nil
}
