package main

import (
	"github.com/harleyjean/rstanarm/bayes"
	"github.com/harleyjean/rstanarm/loo"
)

// RunSummary stores everything a bglm invocation produced.
type RunSummary struct {
	// Version stores bglm version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Seed is the seed used for random number generation initialization.
	Seed int64 `json:"seed"`
	// NThreads is the number of processes used.
	NThreads int `json:"nThreads"`
	// Family and Link identify the fitted model.
	Family string `json:"family"`
	Link   string `json:"link"`
	// NObs is the number of observations read from the dataset.
	NObs int `json:"nObs"`
	// Posterior is the per-parameter posterior summary.
	Posterior []bayes.ParamSummary `json:"posterior"`
	// Loo, Waic and Kfold are present when the corresponding
	// evaluation was requested.
	Loo   *loo.LooResult   `json:"loo,omitempty"`
	Waic  *loo.WaicResult  `json:"waic,omitempty"`
	Kfold *loo.KfoldResult `json:"kfold,omitempty"`
	// Time is the computation time in seconds.
	Time float64 `json:"time"`
}
