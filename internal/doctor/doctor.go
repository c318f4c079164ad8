// Package doctor checks the stored identities and bindings for states the
// registry would never produce, and repairs them.
package doctor

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/ksteinfeldt/gitswitch/internal/identity"
)

// CheckStatus is the outcome of a check.
type CheckStatus int

const (
	StatusOK CheckStatus = iota
	StatusWarning
	StatusError
)

func (s CheckStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// ErrCannotFix is returned by Fix on checks that only report.
var ErrCannotFix = errors.New("check cannot be fixed automatically")

// Store is the data the checks inspect.
type Store interface {
	identity.Store

	// LoadRaw returns the undecoded records stored under key.
	LoadRaw(key string) ([]json.RawMessage, error)
}

// CheckContext carries what a check needs to run.
type CheckContext struct {
	Store Store
}

// CheckResult describes what a check found.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Details []string
	FixHint string

	// Fixed is set when Fix ran and the check passed afterwards.
	Fixed bool
}

// Check inspects one property of the stored data.
type Check interface {
	Name() string
	Description() string
	Run(ctx *CheckContext) *CheckResult
	CanFix() bool
	Fix(ctx *CheckContext) error
}

// BaseCheck provides the name and description of a report-only check.
type BaseCheck struct {
	CheckName        string
	CheckDescription string
}

func (b *BaseCheck) Name() string { return b.CheckName }
func (b *BaseCheck) Description() string { return b.CheckDescription }
func (b *BaseCheck) CanFix() bool { return false }

// Fix always fails for report-only checks.
func (b *BaseCheck) Fix(*CheckContext) error { return ErrCannotFix }

// FixableCheck is embedded by checks that implement Fix.
type FixableCheck struct {
	BaseCheck
}

func (f *FixableCheck) CanFix() bool { return true }

// Report collects the results of a doctor run.
type Report struct {
	Results []*CheckResult
}

// Count returns how many results have status s.
func (r *Report) Count(s CheckStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Healthy reports whether every check passed.
func (r *Report) Healthy() bool {
	return r.Count(StatusOK) == len(r.Results)
}

// Doctor runs an ordered set of checks.
type Doctor struct {
	checks []Check
}

// New creates a Doctor with the default checks. Order matters when fixing:
// ids are made unique before bindings are matched against them.
func New() *Doctor {
	return &Doctor{checks: []Check{
		NewActivationScopeCheck(),
		NewMultipleActiveCheck(),
		NewDuplicateIDCheck(),
		NewDanglingBindingsCheck(),
	}}
}

// Checks returns the registered checks.
func (d *Doctor) Checks() []Check {
	return d.checks
}

// Run runs every check. With fix set, failing fixable checks are repaired
// and run again.
func (d *Doctor) Run(ctx *CheckContext, fix bool) *Report {
	report := &Report{}
	for _, c := range d.checks {
		res := c.Run(ctx)
		if fix && res.Status != StatusOK && c.CanFix() {
			if err := c.Fix(ctx); err != nil {
				log.Printf("[doctor] %s: fix failed: %v", c.Name(), err)
				res.Details = append(res.Details, "fix failed: "+err.Error())
			} else if after := c.Run(ctx); after.Status == StatusOK {
				log.Printf("[doctor] %s: fixed", c.Name())
				res.Fixed = true
				res.Status = StatusOK
			}
		}
		report.Results = append(report.Results, res)
	}
	return report
}
