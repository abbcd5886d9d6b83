// Package cost turns angle feature vectors into a scalar instability cost.
//
// Each Method is a pure function over a previous and a current angle vector.
// Undefined (NaN) entries are skipped by every reduction; a reduction whose
// inputs are all undefined yields NaN, and Engine replaces a NaN cost with
// the previous one.
package cost

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMethod is returned by ParseMethod for an unknown method name.
var ErrInvalidMethod = errors.New("invalid cost method")

// Method identifies one cost strategy.
type Method int

const (
	DifferenceMean Method = iota
	MeanDifference
	DifferenceSum
	Mean
	Division
)

var methodNames = [...]string{
	DifferenceMean: "DifferenceMean",
	MeanDifference: "MeanDifference",
	DifferenceSum:  "DifferenceSum",
	Mean:           "Mean",
	Division:       "Division",
}

// Methods returns every supported method in a stable order.
func Methods() []Method {
	return []Method{Division, DifferenceSum, MeanDifference, DifferenceMean, Mean}
}

// String implements fmt.Stringer.
func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

// Valid reports whether m is one of the defined methods.
func (m Method) Valid() bool {
	return m >= 0 && int(m) < len(methodNames)
}

// ParseMethod resolves a method name. Matching ignores case.
func ParseMethod(name string) (Method, error) {
	for i, n := range methodNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Method(i), nil
		}
	}
	return 0, fmt.Errorf("%w %q: use one of %s", ErrInvalidMethod, name, strings.Join(methodNames[:], ", "))
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMethod, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(b []byte) error {
	parsed, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// NeedsPrevious reports whether the method compares two frames.
func (m Method) NeedsPrevious() bool {
	return m != Mean
}
