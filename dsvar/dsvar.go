// Package dsvar implements the variable pool (design space component
// C2): an ordered, uniquely-named table mapping variable name to index
// and numeric value, with a lifecycle lock so a pool shared between a
// GMA and its derived cases can be made safely read-only.
package dsvar

import "fmt"

// AccessMode is the lifecycle state of a Pool (spec §5: "carry an
// access-mode flag ... enforced on every mutating call").
type AccessMode int

const (
	// ReadWriteAdd allows adding new variables and modifying existing
	// values; the pool's initial state.
	ReadWriteAdd AccessMode = iota
	// ReadWrite allows modifying existing values but rejects Add.
	ReadWrite
	// ReadOnly rejects both Add and Set.
	ReadOnly
	// Locked additionally rejects mode transitions back to a more
	// permissive state.
	Locked
)

// Pool is an ordered, uniquely-named collection of real-valued
// variables. Indices are stable for the pool's lifetime: Add always
// appends. A Pool shared by a GMA and its cases is expected to be
// switched to ReadOnly for the duration of the sharing (spec §9,
// "every Case owns a handle to a read-only view of its parent GMA's
// variable pools").
type Pool struct {
	names  []string
	index  map[string]int
	values []float64
	mode   AccessMode
}

// New returns an empty pool in ReadWriteAdd mode.
func New() *Pool {
	return &Pool{index: make(map[string]int)}
}

// Add appends a variable with the given name and initial value,
// returning its index. It returns an error if the pool is not in
// ReadWriteAdd mode or the name already exists.
func (p *Pool) Add(name string, value float64) (int, error) {
	if p.mode != ReadWriteAdd {
		return -1, fmt.Errorf("dsvar: pool is not writable (mode %d)", p.mode)
	}
	if _, ok := p.index[name]; ok {
		return -1, fmt.Errorf("dsvar: variable %q already exists", name)
	}
	idx := len(p.names)
	p.names = append(p.names, name)
	p.values = append(p.values, value)
	p.index[name] = idx
	return idx, nil
}

// IndexOf returns the index of name and whether it was found.
func (p *Pool) IndexOf(name string) (int, bool) {
	i, ok := p.index[name]
	return i, ok
}

// Has reports whether name is present in the pool.
func (p *Pool) Has(name string) bool {
	_, ok := p.index[name]
	return ok
}

// ValueOf returns the current value of name and whether it was found.
func (p *Pool) ValueOf(name string) (float64, bool) {
	i, ok := p.index[name]
	if !ok {
		return 0, false
	}
	return p.values[i], true
}

// ValueAt returns the value at index i.
func (p *Pool) ValueAt(i int) float64 {
	return p.values[i]
}

// NameAt returns the name at index i, in insertion order.
func (p *Pool) NameAt(i int) string {
	return p.names[i]
}

// Len returns the number of variables in the pool.
func (p *Pool) Len() int {
	return len(p.names)
}

// Names returns the variable names in insertion order. The returned
// slice is owned by the caller.
func (p *Pool) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// SetValue updates the value of an existing variable. It returns an
// error if the pool is ReadOnly/Locked or the name is absent.
func (p *Pool) SetValue(name string, value float64) error {
	if p.mode == ReadOnly || p.mode == Locked {
		return fmt.Errorf("dsvar: pool is read-only")
	}
	i, ok := p.index[name]
	if !ok {
		return fmt.Errorf("dsvar: variable %q does not exist", name)
	}
	p.values[i] = value
	return nil
}

// SetMode transitions the pool's access mode. Locked pools reject any
// further transition.
func (p *Pool) SetMode(m AccessMode) error {
	if p.mode == Locked {
		return fmt.Errorf("dsvar: pool is locked")
	}
	p.mode = m
	return nil
}

// Mode returns the pool's current access mode.
func (p *Pool) Mode() AccessMode {
	return p.mode
}

// Clone returns a deep copy of the pool in ReadWriteAdd mode,
// regardless of the receiver's mode.
func (p *Pool) Clone() *Pool {
	out := New()
	out.names = append([]string(nil), p.names...)
	out.values = append([]float64(nil), p.values...)
	out.index = make(map[string]int, len(p.index))
	for k, v := range p.index {
		out.index[k] = v
	}
	return out
}

// Each calls f for every variable in insertion order.
func (p *Pool) Each(f func(index int, name string, value float64)) {
	for i, n := range p.names {
		f(i, n, p.values[i])
	}
}
