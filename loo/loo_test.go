package loo

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/gonum/matrix/mat64"

	"github.com/op/go-logging"
)

func init() {
	logging.SetLevel(logging.ERROR, "loo")
}

// fakeModel serves a fixed log-likelihood matrix and simulates exact
// refits by shifting held-out log-likelihood columns.
type fakeModel struct {
	ll         *mat64.Dense
	chains     int
	mcmc       bool
	weighted   bool
	refitShift float64
	failRefit  map[int]bool
	excluded   []int
}

func (m *fakeModel) NObs() int      { _, n := m.ll.Dims(); return n }
func (m *fakeModel) NChains() int   { return m.chains }
func (m *fakeModel) IsMCMC() bool   { return m.mcmc }
func (m *fakeModel) Weighted() bool { return m.weighted }

func (m *fakeModel) LogLik() (*mat64.Dense, error) {
	return m.ll, nil
}

func (m *fakeModel) LogLikOf(obs []int) (*mat64.Dense, error) {
	s, _ := m.ll.Dims()
	out := mat64.NewDense(s, len(obs), nil)
	shift := 0.0
	if m.excluded != nil {
		shift = m.refitShift
	}
	for j, o := range obs {
		for i := 0; i < s; i++ {
			out.Set(i, j, m.ll.At(i, o)+shift)
		}
	}
	return out, nil
}

func (m *fakeModel) Refit(exclude []int) (Model, error) {
	for _, i := range exclude {
		if m.failRefit[i] {
			return nil, fmt.Errorf("sampler diverged")
		}
	}
	rf := *m
	rf.excluded = exclude
	return &rf, nil
}

func newFakeModel(s, n int, heavy map[int]bool, seed int64) *fakeModel {
	return &fakeModel{
		ll:     testLogLik(s, n, heavy, seed),
		chains: 4,
		mcmc:   true,
	}
}

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestComputeMatchesMatrix(tst *testing.T) {
	m := newFakeModel(1000, 12, map[int]bool{4: true}, 10)
	opts := &Options{KThreshold: []float64{0.7}}

	fromModel, err := Compute(m, opts)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	fromMatrix, err := ComputeMatrix(m.ll, m.chains, opts)
	if err != nil {
		tst.Fatal("Error: ", err)
	}

	if fromModel.Elpd != fromMatrix.Elpd || fromModel.PEff != fromMatrix.PEff {
		tst.Error("totals differ between model and matrix entry points")
	}
	for i := range fromModel.Pointwise {
		a, b := fromModel.Pointwise[i], fromMatrix.Pointwise[i]
		if a.Elpd != b.Elpd || a.K != b.K || a.P != b.P {
			tst.Error("pointwise row", i, "differs between entry points")
		}
	}
}

func TestPointwiseSumsToTotal(tst *testing.T) {
	m := newFakeModel(800, 16, nil, 11)
	res, err := Compute(m, nil)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	sum := 0.0
	for _, pt := range res.Pointwise {
		sum += pt.Elpd
	}
	if sum != res.Elpd.Value {
		tst.Error("pointwise sum", sum, "!= total", res.Elpd.Value)
	}
	if res.Elpd.SE <= 0 || math.IsNaN(res.Elpd.SE) || math.IsInf(res.Elpd.SE, 0) {
		tst.Error("standard error not a finite positive number:", res.Elpd.SE)
	}
	counts := res.KCounts()
	if counts[0]+counts[1]+counts[2]+counts[3] != res.NObs {
		tst.Error("k bands do not partition the observations:", counts)
	}
}

func TestNotMCMC(tst *testing.T) {
	m := newFakeModel(100, 4, nil, 12)
	m.mcmc = false

	_, err := Compute(m, nil)
	if err == nil || !strings.Contains(err.Error(), "only available for models fit using MCMC") {
		tst.Error("expected MCMC-only error, got", err)
	}
	var nm *NotMCMCError
	if !errors.As(err, &nm) {
		tst.Error("error is not a NotMCMCError")
	}

	if _, err = Waic(m); err == nil || !strings.Contains(err.Error(), "only available for models fit using MCMC") {
		tst.Error("expected MCMC-only error from waic, got", err)
	}
	if _, err = Kfold(m, 2, nil); err == nil || !strings.Contains(err.Error(), "only available for models fit using MCMC") {
		tst.Error("expected MCMC-only error from kfold, got", err)
	}
}

func TestWeightedRejected(tst *testing.T) {
	m := newFakeModel(100, 4, nil, 13)
	m.weighted = true
	_, err := Compute(m, nil)
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		tst.Error("expected unsupported-configuration error, got", err)
	}
	var ue *UnsupportedError
	if !errors.As(err, &ue) {
		tst.Error("error is not an UnsupportedError")
	}
}

func TestThresholdValidation(tst *testing.T) {
	m := newFakeModel(400, 6, nil, 14)

	res, err := Compute(m, &Options{KThreshold: []float64{2}})
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if !hasWarning(res.Warnings, "not recommended") {
		tst.Error("k_threshold > 1 did not warn:", res.Warnings)
	}

	_, err = Compute(m, &Options{KThreshold: []float64{-1}})
	if err == nil || !strings.Contains(err.Error(), "< 0 not allowed") {
		tst.Error("negative threshold accepted:", err)
	}

	_, err = Compute(m, &Options{KThreshold: []float64{0.5, 0.7}})
	if err == nil || !strings.Contains(err.Error(), "single numeric value") {
		tst.Error("non-scalar threshold accepted:", err)
	}

	if math.Abs(defaultKThreshold(100)-0.5) > 1e-12 {
		tst.Error("default threshold for N=100 should be 0.5, got", defaultKThreshold(100))
	}
	if defaultKThreshold(1e6) != 0.7 {
		tst.Error("default threshold should cap at 0.7")
	}
}

func TestTriageWarning(tst *testing.T) {
	heavy := map[int]bool{0: true, 2: true, 3: true, 5: true, 8: true, 11: true, 13: true}
	m := newFakeModel(2000, 16, heavy, 15)
	res, err := Compute(m, &Options{KThreshold: []float64{0.7}})
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if !hasWarning(res.Warnings, "Found 7") {
		tst.Error("expected triage warning mentioning the 7 problematic observations:", res.Warnings)
	}
	for i := range res.Pointwise {
		want := StateOK
		if heavy[i] {
			want = StateNeedsRefit
		}
		if res.States[i] != want {
			tst.Error("observation", i, "in state", res.States[i])
		}
	}
}

func TestSelectiveRefit(tst *testing.T) {
	m := newFakeModel(2000, 10, map[int]bool{4: true}, 16)
	m.refitShift = 0.5
	opts := &Options{KThreshold: []float64{0.7}}

	approx, err := Compute(m, opts)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	opts.Refit = true
	exact, err := Compute(m, opts)
	if err != nil {
		tst.Fatal("Error: ", err)
	}

	if !exact.Pointwise[4].Refit {
		tst.Error("high-k observation was not refit")
	}
	if exact.States[4] != StateRefitDone {
		tst.Error("observation 4 in state", exact.States[4])
	}
	if exact.Pointwise[4].Elpd == approx.Pointwise[4].Elpd {
		tst.Error("exact elpd identical to the approximation")
	}
	for i := range exact.Pointwise {
		if i == 4 {
			continue
		}
		if exact.Pointwise[i].Elpd != approx.Pointwise[i].Elpd {
			tst.Error("untouched observation", i, "changed under refitting")
		}
	}
	sum := 0.0
	for _, pt := range exact.Pointwise {
		sum += pt.Elpd
	}
	if sum != exact.Elpd.Value {
		tst.Error("totals not recomputed after refit")
	}
}

func TestRefitFailure(tst *testing.T) {
	m := newFakeModel(2000, 10, map[int]bool{2: true, 6: true}, 17)
	m.refitShift = 0.5
	m.failRefit = map[int]bool{6: true}

	res, err := Compute(m, &Options{KThreshold: []float64{0.7}, Refit: true, Workers: 2})
	if err != nil {
		tst.Fatal("refit failure aborted the call: ", err)
	}
	if res.States[2] != StateRefitDone {
		tst.Error("observation 2 in state", res.States[2])
	}
	if res.States[6] != StateRefitFailed {
		tst.Error("observation 6 in state", res.States[6])
	}
	if len(res.RefitFailed) != 1 || res.RefitFailed[0] != 6 {
		tst.Error("failed refit not recorded:", res.RefitFailed)
	}
	if res.Pointwise[6].Refit {
		tst.Error("failed observation marked as refit")
	}
}

func TestLooStringFormat(tst *testing.T) {
	m := newFakeModel(500, 8, nil, 18)
	res, err := Compute(m, nil)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	s := res.String()
	for _, want := range []string{"elpd_loo", "p_loo", "looic", "Pareto k diagnostic"} {
		if !strings.Contains(s, want) {
			tst.Error("summary missing", want)
		}
	}
}

func TestCompare(tst *testing.T) {
	m := newFakeModel(500, 8, nil, 19)
	a, err := Compute(m, nil)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	diff, err := Compare(a, a)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if diff.Value != 0 || diff.SE != 0 {
		tst.Error("self-comparison should be exactly zero:", diff)
	}
}
