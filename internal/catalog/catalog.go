package catalog

import (
	"errors"
	"math"
	"sync"

	"github.com/rotisserie/eris"
)

// ErrModelNotFound is returned by Get for an unregistered model name.
var ErrModelNotFound = errors.New("model not found")

// EvalFunc evaluates a curve at x for the given parameter vector.
type EvalFunc func(x float64, p []float64) float64

// Definition describes one candidate model. Lower[i] <= Upper[i] holds for
// every parameter; unbounded sides use ±Inf.
type Definition struct {
	Kind   Kind
	Name   string
	Eval   EvalFunc
	Guess  []float64
	Lower  []float64
	Upper  []float64
	Domain string // x-domain restriction, informational
}

// K returns the parameter count.
func (d Definition) K() int {
	return len(d.Guess)
}

// Curve evaluates the model at every x.
func (d Definition) Curve(xs, params []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = d.Eval(x, params)
	}
	return out
}

// Clamp projects params into the definition's box in place.
func (d Definition) Clamp(params []float64) {
	for i := range params {
		if params[i] < d.Lower[i] {
			params[i] = d.Lower[i]
		}
		if params[i] > d.Upper[i] {
			params[i] = d.Upper[i]
		}
	}
}

func (d Definition) validate() error {
	if d.Name == "" {
		return eris.New("catalog: definition without name")
	}
	if d.Eval == nil {
		return eris.Errorf("catalog: %s has no evaluation function", d.Name)
	}
	k := len(d.Guess)
	if k == 0 {
		return eris.Errorf("catalog: %s has no parameters", d.Name)
	}
	if len(d.Lower) != k || len(d.Upper) != k {
		return eris.Errorf("catalog: %s bounds have %d/%d entries, want %d", d.Name, len(d.Lower), len(d.Upper), k)
	}
	for i := 0; i < k; i++ {
		if math.IsNaN(d.Lower[i]) || math.IsNaN(d.Upper[i]) || d.Lower[i] > d.Upper[i] {
			return eris.Errorf("catalog: %s parameter %d has invalid bounds [%v, %v]", d.Name, i, d.Lower[i], d.Upper[i])
		}
		if d.Guess[i] < d.Lower[i] || d.Guess[i] > d.Upper[i] {
			return eris.Errorf("catalog: %s initial guess %v outside bounds for parameter %d", d.Name, d.Guess[i], i)
		}
	}
	return nil
}

// copyDef detaches the slices so callers cannot mutate registered entries.
func copyDef(d Definition) Definition {
	d.Guess = append([]float64(nil), d.Guess...)
	d.Lower = append([]float64(nil), d.Lower...)
	d.Upper = append([]float64(nil), d.Upper...)
	return d
}

// Catalog is an ordered, append-only set of model definitions.
type Catalog struct {
	mu    sync.RWMutex
	defs  []Definition
	index map[string]int
}

// New creates a catalog from the given definitions, in order.
func New(defs ...Definition) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(defs))}
	for _, d := range defs {
		if err := c.Register(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register appends a definition. Names must be unique.
func (c *Catalog) Register(d Definition) error {
	if err := d.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.index[d.Name]; dup {
		return eris.Errorf("catalog: duplicate model %q", d.Name)
	}
	c.index[d.Name] = len(c.defs)
	c.defs = append(c.defs, copyDef(d))
	return nil
}

// Get returns the definition registered under name.
func (c *Catalog) Get(name string) (Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[name]
	if !ok {
		return Definition{}, eris.Wrapf(ErrModelNotFound, "catalog: %q", name)
	}
	return copyDef(c.defs[i]), nil
}

// Lookup returns the first definition of the given kind.
func (c *Catalog) Lookup(k Kind) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.defs {
		if d.Kind == k {
			return copyDef(d), true
		}
	}
	return Definition{}, false
}

// All returns every definition in registration order.
func (c *Catalog) All() []Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Definition, len(c.defs))
	for i, d := range c.defs {
		out[i] = copyDef(d)
	}
	return out
}

// Names returns every model name in registration order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.defs))
	for i, d := range c.defs {
		out[i] = d.Name
	}
	return out
}

// Len returns the number of registered models.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.defs)
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := New(builtins()...)
	if err != nil {
		panic(err)
	}
	return c
})

// Default returns the reference catalog of built-in models. Callers that
// register custom models should build their own with New(Builtins()...).
func Default() *Catalog {
	return defaultCatalog()
}

// Builtins returns fresh copies of the built-in definitions in reference order.
func Builtins() []Definition {
	defs := builtins()
	for i := range defs {
		defs[i] = copyDef(defs[i])
	}
	return defs
}
