// Package dserrors implements the error taxonomy and process-wide
// reporting hooks described for the design space engine: programmer
// errors are fatal and routed through an installed callback, while
// domain verdicts (singular, infeasible) travel as typed return values
// in the packages that produce them.
package dserrors

import (
	"fmt"
	"sync"
)

// Kind enumerates the taxonomy of failures the engine can report.
type Kind int

const (
	// ShapeMismatch: equation count disagrees with the dependent
	// variable count, or a matrix operation receives disagreeing
	// dimensions.
	ShapeMismatch Kind = iota
	// NotGMA: an equation cannot be expressed as a signed sum of
	// power-law monomials.
	NotGMA
	// Singular: A_d is rank-deficient; the consuming path is expected
	// to route to the cyclical resolver.
	Singular
	// OutOfBounds: a signature digit, case number, or matrix index is
	// outside its valid range.
	OutOfBounds
	// Infeasible: a polytope is empty. Reported as a verdict, not
	// necessarily through this callback.
	Infeasible
	// NumericalFailure: a matrix inversion produced a non-finite
	// result, or the LP backend returned an unknown status.
	NumericalFailure
	// ConfigurationConflict: endianness set twice to different
	// values, or conditions added to a design space after its
	// validity memo was populated without invalidation.
	ConfigurationConflict
)

func (k Kind) String() string {
	switch k {
	case ShapeMismatch:
		return "shape mismatch"
	case NotGMA:
		return "not a GMA"
	case Singular:
		return "singular"
	case OutOfBounds:
		return "out of bounds"
	case Infeasible:
		return "infeasible"
	case NumericalFailure:
		return "numerical failure"
	case ConfigurationConflict:
		return "configuration conflict"
	default:
		return "unknown"
	}
}

// Severity of a reported record.
type Severity int

const (
	// Warning records are informational; the operation that raised
	// them may still have produced a usable (if degraded) result.
	Warning Severity = iota
	// Fatal records accompany an operation that returned a
	// zero/empty value because it could not proceed safely.
	Fatal
)

// Record is the structured payload passed to the installed error
// callback.
type Record struct {
	Severity  Severity
	Subsystem string
	Kind      Kind
	Message   string
}

func (r Record) Error() string {
	return fmt.Sprintf("%s: %s: %s", r.Subsystem, r.Kind, r.Message)
}

var (
	mu      sync.Mutex
	handler func(Record)
	printer func(string)
)

// SetErrorHandler installs the process-wide error callback. Passing
// nil restores the default, which discards records silently (the
// engine itself never panics on a domain verdict).
func SetErrorHandler(f func(Record)) {
	mu.Lock()
	defer mu.Unlock()
	handler = f
}

// SetLogger installs a process-wide sink for the strings passed to
// Print. No package in this module calls Print at present, so the
// sink receives only what host code prints through it.
// Hosts that want structured logging wire their logger here; the
// engine does not import a logging library itself, since none of the
// teacher's own internal packages do.
func SetLogger(f func(string)) {
	mu.Lock()
	defer mu.Unlock()
	printer = f
}

// Report delivers a record to the installed handler, if any. Callers
// in this module report Fatal-severity records: dsgma.Build reports
// NotGMA just before returning its error, and SetEndianness reports
// ConfigurationConflict when a second, different value is ignored.
func Report(r Record) {
	mu.Lock()
	h := handler
	mu.Unlock()
	if h != nil {
		h(r)
	}
}

// Print routes a diagnostic string to the installed logger, if any.
func Print(s string) {
	mu.Lock()
	p := printer
	mu.Unlock()
	if p != nil {
		p(s)
	}
}

// Endianness selects the digit order of the signature/case-number
// bijection (spec §4.7).
type Endianness int

const (
	// BigEndian is the default: the first signature digit is the most
	// significant.
	BigEndian Endianness = iota
	LittleEndian
)

var (
	endianMu  sync.Mutex
	endianSet bool
	endian    = BigEndian
)

// SetEndianness fixes the process-wide case-number bijection
// direction. The first call wins; later calls with a different value
// raise ConfigurationConflict and are ignored, per spec §9 ("forbid
// mixing endianness across a process by making the first choice
// immutable for the engine's lifetime").
func SetEndianness(e Endianness) {
	endianMu.Lock()
	defer endianMu.Unlock()
	if !endianSet {
		endian = e
		endianSet = true
		return
	}
	if endian != e {
		Report(Record{
			Severity:  Fatal,
			Subsystem: "dserrors",
			Kind:      ConfigurationConflict,
			Message:   "endianness already fixed for this process to a different value",
		})
	}
}

// CurrentEndianness returns the process-wide endianness, fixing it to
// the default (BigEndian) on first use if no caller has set it yet.
func CurrentEndianness() Endianness {
	endianMu.Lock()
	defer endianMu.Unlock()
	if !endianSet {
		endianSet = true
	}
	return endian
}

// ResetForTesting clears process-wide state. Only the test suites in
// this module call this; it exists because the endianness switch is
// otherwise immutable for the process's lifetime.
func ResetForTesting() {
	endianMu.Lock()
	endianSet = false
	endian = BigEndian
	endianMu.Unlock()
	mu.Lock()
	handler = nil
	printer = nil
	mu.Unlock()
}
