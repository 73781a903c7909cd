package main

import (
	"strings"
	"testing"
)

const testCSV = `y,x1,x2,w
1.5,0.1,2,1
2.5,0.2,3,2
3.5,0.3,4,1
`

func TestReadDataset(tst *testing.T) {
	ds, err := readDataset(strings.NewReader(testCSV))
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if len(ds.names) != 4 {
		tst.Error("wrong column count:", ds.names)
	}
	x2, err := ds.column("x2")
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if len(x2) != 3 || x2[1] != 3 {
		tst.Error("column x2 mangled:", x2)
	}
	if _, err = ds.column("nope"); err == nil {
		tst.Error("missing column not reported")
	}

	if _, err = readDataset(strings.NewReader("y,x\n1,notanumber\n")); err == nil {
		tst.Error("non-numeric field accepted")
	}
	if _, err = readDataset(strings.NewReader("y,x\n")); err == nil {
		tst.Error("empty dataset accepted")
	}
}

func TestModelData(tst *testing.T) {
	ds, err := readDataset(strings.NewReader(testCSV))
	if err != nil {
		tst.Fatal("Error: ", err)
	}

	// explicit predictors with intercept
	data, names, err := ds.modelData("y", []string{"x1"}, "w", "", true, 0)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if data.NObs() != 3 || data.NPred() != 2 {
		tst.Error("wrong dimensions:", data.NObs(), data.NPred())
	}
	if names[0] != "(Intercept)" || names[1] != "x1" {
		tst.Error("wrong names:", names)
	}
	if data.X.At(2, 0) != 1 || data.X.At(2, 1) != 0.3 {
		tst.Error("model matrix mangled")
	}
	if !data.Weighted() {
		tst.Error("weights column ignored")
	}

	// inferred predictors skip response and weights
	_, names, err = ds.modelData("y", nil, "w", "", true, 0)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if len(names) != 3 || names[1] != "x1" || names[2] != "x2" {
		tst.Error("inferred predictors wrong:", names)
	}
}
