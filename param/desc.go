// SPDX-License-Identifier: EPL-2.0

package param

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Kind tags a parameter's declared type.
type Kind int

const (
	KindFloat Kind = iota
	KindInteger
	KindBoolean
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "Float"
	case KindInteger:
		return "Integer"
	case KindBoolean:
		return "Boolean"
	case KindEnum:
		return "Enum"
	default:
		return "Unknown"
	}
}

// Polarity describes whether a parameter's raw range straddles zero
// (Bipolar, e.g. pan) or not (Unipolar, e.g. gain, frequency).
type Polarity int

const (
	Unipolar Polarity = iota
	Bipolar
)

func (p Polarity) String() string {
	if p == Bipolar {
		return "bipolar"
	}
	return "unipolar"
}

// Desc is a parameter's schema entry: everything needed to map between
// normalized and raw values, format/parse strings, and (for Enum) list
// the named values (§3 "Parameter", §6 "Parameter JSON").
type Desc struct {
	ID   FourCC
	Name string
	Kind Kind

	Min, Max, Default float64
	Curve             Curve
	Polarity          Polarity
	Unit              string // e.g. "dB", "Hz", "%"
	Step              float64

	// EnumValues holds display names for KindEnum, indexed by raw value
	// 0..len(EnumValues)-1.
	EnumValues []string

	Smoothing   Smoothing
	Randomizable bool
}

// NormalizedDefault returns Default expressed in [0,1].
func (d Desc) NormalizedDefault() float64 {
	return d.Curve.ToNormalized(d.Default, d.Min, d.Max)
}

// ToRaw maps a normalized value through the descriptor's curve and, for
// Integer/Enum/Boolean kinds, rounds to the nearest representable step.
func (d Desc) ToRaw(normalized float64) float64 {
	raw := d.Curve.ToRaw(normalized, d.Min, d.Max)
	switch d.Kind {
	case KindInteger, KindEnum:
		return float64(int64(raw + 0.5))
	case KindBoolean:
		if raw >= 0.5*(d.Min+d.Max) {
			return d.Max
		}
		return d.Min
	default:
		return raw
	}
}

// ToNormalized is the inverse of ToRaw for continuous kinds.
func (d Desc) ToNormalized(raw float64) float64 {
	return d.Curve.ToNormalized(raw, d.Min, d.Max)
}

// ValueToString formats raw per the parameter's type and unit, e.g.
// "+3.2 dB", "440 Hz", "50%", or an enum's display name.
func (d Desc) ValueToString(raw float64) string {
	switch d.Kind {
	case KindBoolean:
		if raw >= 0.5*(d.Min+d.Max) {
			return "On"
		}
		return "Off"
	case KindEnum:
		idx := int(raw + 0.5)
		if idx >= 0 && idx < len(d.EnumValues) {
			return d.EnumValues[idx]
		}
		return strconv.Itoa(idx)
	case KindInteger:
		return fmt.Sprintf("%d%s", int64(raw+0.5), d.Unit)
	default:
		switch d.Unit {
		case "dB":
			if raw >= 0 {
				return fmt.Sprintf("+%.1f dB", raw)
			}
			return fmt.Sprintf("%.1f dB", raw)
		case "Hz":
			return fmt.Sprintf("%.0f Hz", raw)
		case "%":
			return fmt.Sprintf("%.0f%%", raw*100)
		default:
			return fmt.Sprintf("%.3g%s", raw, d.Unit)
		}
	}
}

// StringToValue parses a formatted string (as produced by ValueToString,
// or a bare number) back into a raw value, accepting the unit suffix.
func (d Desc) StringToValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch d.Kind {
	case KindBoolean:
		switch strings.ToLower(s) {
		case "on", "true", "1":
			return d.Max, nil
		default:
			return d.Min, nil
		}
	case KindEnum:
		for i, name := range d.EnumValues {
			if strings.EqualFold(name, s) {
				return float64(i), nil
			}
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v, nil
		}
		return 0, fmt.Errorf("%q is not a value of %s", s, d.Name)
	default:
		s = strings.TrimSuffix(s, "%")
		s = strings.TrimSuffix(s, d.Unit)
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(s, "+")
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing %q for %s: %w", s, d.Name, err)
		}
		if d.Unit == "%" {
			v /= 100
		}
		return v, nil
	}
}

// Randomize picks a uniform value within the descriptor's range,
// respecting its curve, for use by generators whose schema flags the
// parameter Randomizable (§4.7). A nil rng uses the package-level
// (auto-seeded) source; pass an explicit *rand.Rand for reproducible
// tests.
func (d Desc) Randomize(rng *rand.Rand) float64 {
	var n float64
	if rng == nil {
		n = rand.Float64()
	} else {
		n = rng.Float64()
	}
	return d.ToRaw(n)
}

// RandomizeSchema returns a new raw value for every Randomizable
// parameter in schema, in schema order, so the control side can push
// updated values to a UI (§4.7).
func RandomizeSchema(schema []Desc, rng *rand.Rand) map[FourCC]float64 {
	out := make(map[FourCC]float64)
	for _, d := range schema {
		if d.Randomizable {
			out[d.ID] = d.Randomize(rng)
		}
	}
	return out
}
