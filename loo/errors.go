package loo

import "fmt"

// NotMCMCError is returned when an evaluation routine is applied to a
// model that was not fit by sampling (e.g. a posterior-mode fit).
type NotMCMCError struct {
	Routine string
}

func (e *NotMCMCError) Error() string {
	return fmt.Sprintf("%s is only available for models fit using MCMC", e.Routine)
}

// UnsupportedError is returned for model configurations the requested
// routine cannot handle.
type UnsupportedError struct {
	Reason string
}

func (e *UnsupportedError) Error() string {
	return e.Reason
}

// ThresholdError is returned for a malformed k_threshold input.
type ThresholdError struct {
	Reason string
}

func (e *ThresholdError) Error() string {
	return e.Reason
}

// FoldCountError is returned for a fold count outside [2, N].
type FoldCountError struct {
	K, N int
}

func (e *FoldCountError) Error() string {
	return fmt.Sprintf("kfold requires 2 <= K <= N: the number of observations must be >= K (K=%d, N=%d)", e.K, e.N)
}
