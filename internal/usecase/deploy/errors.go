package deploy

import (
	"errors"
	"fmt"
)

// ErrClusterNotFound is returned by operations that need an existing cluster.
var ErrClusterNotFound = errors.New("cluster does not exist")

// StepError records which pipeline step failed.
type StepError struct {
	Step  int
	Title string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Step, e.Title, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
