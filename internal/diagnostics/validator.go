// Package diagnostics implements the external-validator pipeline:
// invoke bean-check (or an equivalent) as a subprocess, parse its JSON
// output, bucket results by URI, and publish deltas.
//
// Validator selection uses a small interface implemented by several
// interchangeable backends, registered once at startup and selected by
// name/availability rather than hard-coded to one implementation: the
// strategies are the system bean-check binary, python + bean-check
// module, and embedded python.
package diagnostics

import (
	"context"
)

// Validator runs an external syntax/balance check against a root file
// and returns its raw stdout/stderr/exit status. Concrete strategies
// (system bean-check, python -m beancount.scripts.check, an embedded
// interpreter) all implement this one interface.
type Validator interface {
	Name() string
	Available() bool
	Run(ctx context.Context, rootFile string) (stdout, stderr []byte, exitCode int, err error)
}

// Registry holds every configured Validator, in preference order, and
// selects the first one whose Available() reports true.
type Registry struct {
	validators []Validator
}

// NewRegistry creates a registry from strategies in preference order.
func NewRegistry(strategies ...Validator) *Registry {
	return &Registry{validators: strategies}
}

// Select returns the first available validator, or nil if none are.
func (r *Registry) Select() Validator {
	for _, v := range r.validators {
		if v.Available() {
			return v
		}
	}
	return nil
}

// ByName returns the validator with the given name, or nil.
func (r *Registry) ByName(name string) Validator {
	for _, v := range r.validators {
		if v.Name() == name {
			return v
		}
	}
	return nil
}
