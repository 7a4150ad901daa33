// SPDX-License-Identifier: EPL-2.0

package param

import "encoding/json"

// jsonDesc mirrors the wire shape from §6 "Parameter JSON":
//
//	{id: "FourCC", name, type: "Float|Integer|Boolean|Enum", default:
//	 normalized, step?, values?: [string...], polarity: "unipolar|bipolar",
//	 unit?: string}
type jsonDesc struct {
	ID       FourCC   `json:"id"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Default  float64  `json:"default"`
	Step     *float64 `json:"step,omitempty"`
	Values   []string `json:"values,omitempty"`
	Polarity string   `json:"polarity"`
	Unit     string   `json:"unit,omitempty"`
}

// MarshalJSON implements the host/UI bridge wire format for a parameter
// descriptor (§6).
func (d Desc) MarshalJSON() ([]byte, error) {
	jd := jsonDesc{
		ID:       d.ID,
		Name:     d.Name,
		Type:     d.Kind.String(),
		Default:  d.NormalizedDefault(),
		Values:   d.EnumValues,
		Polarity: d.Polarity.String(),
		Unit:     d.Unit,
	}
	if d.Step != 0 {
		step := d.Step
		jd.Step = &step
	}
	return json.Marshal(jd)
}
