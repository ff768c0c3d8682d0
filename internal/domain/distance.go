package domain

import (
	"fmt"
	"strings"
)

// Distance is the similarity function declared at collection creation.
// Numeric values follow the store's wire enumeration.
type Distance int

const (
	DistanceUnknown Distance = iota
	Cosine
	Euclid
	Dot
	Manhattan
)

func (d Distance) String() string {
	switch d {
	case Cosine:
		return "Cosine"
	case Euclid:
		return "Euclid"
	case Dot:
		return "Dot"
	case Manhattan:
		return "Manhattan"
	default:
		return fmt.Sprintf("Unknown(%d)", int(d))
	}
}

// Valid reports whether d is one of the supported metrics.
func (d Distance) Valid() bool {
	return d >= Cosine && d <= Manhattan
}

// ParseDistance maps a configuration string onto a Distance.
func ParseDistance(s string) (Distance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cosine", "":
		return Cosine, nil
	case "euclid", "euclidean", "l2":
		return Euclid, nil
	case "dot", "dotproduct", "dot_product":
		return Dot, nil
	case "manhattan", "l1":
		return Manhattan, nil
	default:
		return DistanceUnknown, fmt.Errorf("%w: unknown distance %q", ErrInvalidInput, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Distance) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: unknown distance %d", ErrInvalidInput, int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Distance) UnmarshalText(b []byte) error {
	v, err := ParseDistance(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
