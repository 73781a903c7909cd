package loo

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestKfoldPartition(tst *testing.T) {
	folds := assignFolds(23, 5)
	if len(folds) != 5 {
		tst.Fatal("expected 5 folds, got", len(folds))
	}
	seen := make(map[int]int)
	for _, fold := range folds {
		for _, i := range fold {
			seen[i]++
		}
	}
	if len(seen) != 23 {
		tst.Error("partition covers", len(seen), "observations, want 23")
	}
	for i, c := range seen {
		if c != 1 {
			tst.Error("observation", i, "appears in", c, "folds")
		}
	}
	for f, fold := range folds {
		if len(fold) < 4 || len(fold) > 5 {
			tst.Error("fold", f, "has uneven size", len(fold))
		}
	}
}

func TestKfoldFoldCount(tst *testing.T) {
	m := newFakeModel(200, 8, nil, 40)

	_, err := Kfold(m, 1, nil)
	if err == nil {
		tst.Error("K=1 accepted")
	}
	_, err = Kfold(m, 9, nil)
	if err == nil || !strings.Contains(err.Error(), ">= K") {
		tst.Error("K > N accepted or wrong message:", err)
	}
	var fc *FoldCountError
	if !errors.As(err, &fc) {
		tst.Error("error is not a FoldCountError")
	}
}

func TestKfoldFewFoldsAdvisor(tst *testing.T) {
	m := newFakeModel(300, 15, nil, 41)
	res, err := Kfold(m, 5, nil)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if !hasWarning(res.Warnings, "Found 5 folds") || !hasWarning(res.Warnings, "10-fold") {
		tst.Error("expected the few-folds advisor:", res.Warnings)
	}

	// no advisor when the data cannot support 10 folds anyway
	small := newFakeModel(300, 6, nil, 42)
	res, err = Kfold(small, 3, nil)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if hasWarning(res.Warnings, "folds") {
		tst.Error("advisor fired on a small dataset:", res.Warnings)
	}
}

func TestKfoldAcceptsWeighted(tst *testing.T) {
	// no importance sampling is involved, so weights are allowed
	m := newFakeModel(200, 12, nil, 45)
	m.weighted = true
	res, err := Kfold(m, 3, nil)
	if err != nil {
		tst.Fatal("kfold rejected a weighted model: ", err)
	}
	if math.IsNaN(res.Elpd.Value) {
		tst.Error("degenerate elpd for a weighted model")
	}
}

func TestKfoldTotals(tst *testing.T) {
	m := newFakeModel(600, 20, nil, 43)
	res, err := Kfold(m, 4, &Options{Workers: 3})
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	sum := 0.0
	for i, v := range res.Pointwise {
		if math.IsNaN(v) {
			tst.Fatal("unexpected NaN at observation", i)
		}
		sum += v
	}
	if math.Abs(sum-res.Elpd.Value) > 1e-10 {
		tst.Error("pointwise sum", sum, "!= total", res.Elpd.Value)
	}
	if res.Elpd.SE <= 0 {
		tst.Error("standard error not positive:", res.Elpd.SE)
	}
	if !strings.Contains(res.String(), "elpd_kfold") {
		tst.Error("summary missing elpd_kfold")
	}
}

func TestKfoldFailedFold(tst *testing.T) {
	m := newFakeModel(400, 12, nil, 44)
	// observation 2 sits in fold 2 of a round-robin partition
	m.failRefit = map[int]bool{2: true}
	res, err := Kfold(m, 4, nil)
	if err != nil {
		tst.Fatal("fold failure aborted the call: ", err)
	}
	if len(res.Failed) != 1 || res.Failed[0] != 2 {
		tst.Error("failed fold not recorded:", res.Failed)
	}
	for _, i := range res.Folds[2] {
		if !math.IsNaN(res.Pointwise[i]) {
			tst.Error("observation", i, "of the failed fold has a value")
		}
	}
	if !hasWarning(res.Warnings, "Refit failed") {
		tst.Error("expected a partial-completion warning:", res.Warnings)
	}
	if math.IsNaN(res.Elpd.Value) {
		tst.Error("total poisoned by the failed fold")
	}
}
