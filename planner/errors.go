package planner

import "errors"

var (
	// ErrMalformedPlan indicates the model output could not be read as a plan.
	ErrMalformedPlan = errors.New("malformed plan output")
)
