// SPDX-License-Identifier: EPL-2.0

package param

import "fmt"

// FourCC is a stable 4-byte parameter identifier, e.g. "gain", "freq".
// Using a fixed-width array keeps Desc comparable and avoids a heap
// allocation for the common case of a literal 4-character id.
type FourCC [4]byte

// NewFourCC builds a FourCC from a string of at most 4 bytes, space
// padded on the right (the convention VST/AU-style plugin formats use
// for their parameter tags).
func NewFourCC(s string) FourCC {
	var f FourCC
	for i := range f {
		if i < len(s) {
			f[i] = s[i]
		} else {
			f[i] = ' '
		}
	}
	return f
}

func (f FourCC) String() string {
	return fmt.Sprintf("%c%c%c%c", f[0], f[1], f[2], f[3])
}

// MarshalJSON renders the FourCC as its trimmed string form.
func (f FourCC) MarshalJSON() ([]byte, error) {
	s := trimRight(f.String())
	return []byte(`"` + s + `"`), nil
}

func trimRight(s string) string {
	end := len(s)
	for end > 0 && s[end-1] == ' ' {
		end--
	}
	return s[:end]
}
