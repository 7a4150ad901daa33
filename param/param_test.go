// SPDX-License-Identifier: EPL-2.0

package param

import (
	"encoding/json"
	"math"
	"testing"
)

func TestCurveRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		curve      Curve
		min, max   float64
	}{
		{"linear", Linear, 0, 1},
		{"linear-db", Linear, -60, 12},
		{"exponential-freq", Exponential, 20, 20000},
		{"logarithmic", Logarithmic, 20, 20000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			for _, n := range []float64{0, 0.25, 0.5, 0.75, 1} {
				raw := tc.curve.ToRaw(n, tc.min, tc.max)
				back := tc.curve.ToNormalized(raw, tc.min, tc.max)
				if math.Abs(back-n) > 1e-6 {
					t.Errorf("%s: ToNormalized(ToRaw(%v)) = %v, want %v", tc.name, n, back, n)
				}
			}
		})
	}
}

// TestStringRoundTrip is the §8 property test #3: for all parameters P
// and normalized values v, string_to_value(value_to_string(v))
// reproduces v within the parameter's declared step.
func TestStringRoundTrip(t *testing.T) {
	t.Parallel()

	gain := Desc{
		ID: NewFourCC("gain"), Name: "Gain", Kind: KindFloat,
		Min: -60, Max: 12, Default: 0, Curve: Linear, Unit: "dB", Step: 0.1,
	}
	freq := Desc{
		ID: NewFourCC("freq"), Name: "Frequency", Kind: KindFloat,
		Min: 20, Max: 20000, Default: 1000, Curve: Exponential, Unit: "Hz", Step: 1,
	}
	mix := Desc{
		ID: NewFourCC("mix "), Name: "Mix", Kind: KindFloat,
		Min: 0, Max: 1, Default: 0.5, Curve: Linear, Unit: "%", Step: 0.01,
	}
	waveform := Desc{
		ID: NewFourCC("wave"), Name: "Waveform", Kind: KindEnum,
		Min: 0, Max: 2, EnumValues: []string{"Sine", "Square", "Saw"},
	}

	for _, d := range []Desc{gain, freq, mix, waveform} {
		for _, n := range []float64{0, 0.3, 0.5, 0.9, 1} {
			raw := d.ToRaw(n)
			s := d.ValueToString(raw)
			back, err := d.StringToValue(s)
			if err != nil {
				t.Fatalf("%s: StringToValue(%q) error: %v", d.Name, s, err)
			}
			step := d.Step
			if step == 0 {
				step = 1
			}
			if math.Abs(back-raw) > step+1e-6 {
				t.Errorf("%s: round trip of %v via %q = %v, want within %v", d.Name, raw, s, back, step)
			}
		}
	}
}

func TestValueRampReachesTarget(t *testing.T) {
	t.Parallel()

	v := NewValue(0, Smoothing{Kind: SmoothRamp, RampSamples: 10})
	v.SetTarget(1, nil)
	v.AdvanceBlock(10)

	if v.Current != 1 {
		t.Errorf("Current = %v, want 1 after the ramp completes", v.Current)
	}
	if !v.Settled() {
		t.Error("Settled() = false after ramp completion")
	}
}

func TestValueNoSmoothingIsImmediate(t *testing.T) {
	t.Parallel()

	v := NewValue(0, Smoothing{Kind: SmoothNone})
	v.SetTarget(1, nil)

	if v.Current != 1 {
		t.Errorf("Current = %v, want 1 immediately for SmoothNone", v.Current)
	}
}

func TestValueOnePoleConverges(t *testing.T) {
	t.Parallel()

	v := NewValue(0, Smoothing{Kind: SmoothOnePole, TimeConstantSamples: 100})
	v.SetTarget(1, nil)
	v.AdvanceBlock(5000)

	if math.Abs(v.Current-1) > 1e-3 {
		t.Errorf("Current = %v, want close to 1 after many time constants", v.Current)
	}
}

func TestDescJSONShape(t *testing.T) {
	t.Parallel()

	d := Desc{
		ID: NewFourCC("gain"), Name: "Gain", Kind: KindFloat,
		Min: -60, Max: 12, Default: 0, Curve: Linear, Unit: "dB", Polarity: Bipolar,
	}

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	for _, key := range []string{"id", "name", "type", "default", "polarity"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("marshaled Desc missing key %q", key)
		}
	}
	if decoded["type"] != "Float" {
		t.Errorf("type = %v, want Float", decoded["type"])
	}
	if decoded["polarity"] != "bipolar" {
		t.Errorf("polarity = %v, want bipolar", decoded["polarity"])
	}
}

func TestRandomizeSchemaOnlyTouchesRandomizable(t *testing.T) {
	t.Parallel()

	schema := []Desc{
		{ID: NewFourCC("rnd1"), Min: 0, Max: 1, Curve: Linear, Randomizable: true},
		{ID: NewFourCC("fix1"), Min: 0, Max: 1, Curve: Linear, Randomizable: false},
	}

	out := RandomizeSchema(schema, nil)
	if _, ok := out[NewFourCC("rnd1")]; !ok {
		t.Error("randomizable parameter missing from result")
	}
	if _, ok := out[NewFourCC("fix1")]; ok {
		t.Error("non-randomizable parameter should not be in result")
	}
}
