package cost

import (
	"fmt"
	"math"
)

// Engine evaluates one resolved Method. It holds no per-stream state: the
// previous cost used for NaN substitution is passed in by the caller.
type Engine struct {
	method Method
	fn     Func
	params Params
}

// NewEngine resolves m once so per-frame evaluation never re-dispatches on
// a name. A zero Epsilon is replaced by DefaultEpsilon.
func NewEngine(m Method, p Params) (*Engine, error) {
	fn := m.Func()
	if fn == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMethod, int(m))
	}
	if p.Epsilon == 0 {
		p.Epsilon = DefaultEpsilon
	}
	return &Engine{method: m, fn: fn, params: p}, nil
}

// Method returns the engine's method.
func (e *Engine) Method() Method { return e.method }

// Raw returns the strategy result, which may be NaN.
func (e *Engine) Raw(prev, cur []float64) float64 {
	return e.fn(prev, cur, e.params)
}

// Compute returns the cost for a frame pair. When the strategy yields NaN
// the previous cost is returned instead and substituted is true.
func (e *Engine) Compute(prev, cur []float64, previous float64) (c float64, substituted bool) {
	c = e.Raw(prev, cur)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return previous, true
	}
	return c, false
}
