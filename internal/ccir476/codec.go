// Package ccir476 implements the CCIR-476 seven-bit code used by SITOR-B and
// NAVTEX: every valid codeword carries exactly four ones and three zeros,
// leaving three bits of distance for error detection.
package ccir476

import "math/bits"

// Reserved control codewords. Names follow the original navtex_rx.cpp.
const (
	LTRS   = 0x5a // shift to letters
	FIGS   = 0x36 // shift to figures
	Alpha  = 0x0f // marks the "alpha" (primary) copy of a time-diversity pair
	Beta   = 0x33 // idle / phasing signal
	Char32 = 0x6a
	Rep    = 0x66 // marks the "rep" (repeated) copy of a time-diversity pair
	Bell   = 0x07
)

// codeToLtrs and codeToFigs map a 7-bit codeword to the ASCII character it
// represents in letters/figures shift. '_' marks "no character" - either the
// codeword is a control code or it has no assignment in that shift.
var codeToLtrs = [128]byte{
	'_', '_', '_', '_', '_', '_', '_', '_', '_', '_', '_', '_', '_', '_', '_', '_',
	'_', '_', '_', '_', '_', '_', '_', 'J', '_', '_', '_', 'F', '_', 'C', 'K', '_',
	'_', '_', '_', '_', '_', '_', '_', 'W', '_', '_', '_', 'Y', '_', 'P', 'Q', '_',
	'_', '_', '_', '_', '_', 'G', '_', '_', '_', 'M', 'X', '_', 'V', '_', '_', '_',
	'_', '_', '_', '_', '_', '_', '_', 'A', '_', '_', '_', 'S', '_', 'I', 'U', '_',
	'_', '_', '_', 'D', '_', 'R', 'E', '_', '_', 'N', '_', '_', ' ', '_', '_', '_',
	'_', '_', '_', 'Z', '_', 'L', '_', '_', '_', 'H', '_', '_', '\n', '_', '_', '_',
	'_', 'O', 'B', '_', 'T', '_', '_', '_', '\r', '_', '_', '_', '_', '_', '_', '_',
}

var codeToFigs = [128]byte{
	'_', '_', '_', '_', '_', '_', '_', '_', '_', '_', '_', '_', '_', '_', '_', '_',
	'_', '_', '_', '_', '_', '_', '_', '\'', '_', '_', '_', '!', '_', ':', '(', '_',
	'_', '_', '_', '_', '_', '_', '_', '2', '_', '_', '_', '6', '_', '0', '1', '_',
	'_', '_', '_', '_', '_', '&', '_', '_', '_', '.', '/', '_', ';', '_', '_', '_',
	'_', '_', '_', '_', '_', '_', '_', '-', '_', '_', '_', '\a', '_', '8', '7', '_',
	'_', '_', '_', '$', '_', '4', '3', '_', '_', ',', '_', '_', ' ', '_', '_', '_',
	'_', '_', '_', '"', '_', ')', '_', '_', '_', '#', '_', '_', '\n', '_', '_', '_',
	'_', '9', '?', '_', '5', '_', '_', '_', '\r', '_', '_', '_', '_', '_', '_', '_',
}

// Codec holds the reverse (character -> codeword) tables, built once at
// construction the same way the original CCIR476 constructor does.
type Codec struct {
	ltrsToCode [128]byte
	figsToCode [128]byte
}

// New builds a Codec, computing the reverse tables for every one of the 128
// possible codewords.
func New() *Codec {
	c := &Codec{}
	for code := 0; code < 128; code++ {
		if !CheckBits(code) {
			continue
		}
		if fig := codeToFigs[code]; fig != '_' {
			c.figsToCode[fig] = byte(code)
		}
		if ltr := codeToLtrs[code]; ltr != '_' {
			c.ltrsToCode[ltr] = byte(code)
		}
	}
	return c
}

// CheckBits reports whether v has exactly four bits set - the sole validity
// criterion for a CCIR-476 codeword.
func CheckBits(v int) bool {
	return bits.OnesCount(uint(v)) == 4
}

// BitsToCode turns seven soft bit values into a 7-bit codeword; bit i of the
// result is set iff soft[i] > 0. Depends only on the signs of soft.
func BitsToCode(soft []int) int {
	code := 0
	for i := 0; i < 7; i++ {
		if soft[i] > 0 {
			code |= 1 << uint(i)
		}
	}
	return code
}

// ValidCharAt reports whether the first seven soft bit values of soft
// contain exactly four positive values, without requiring them to already be
// converted into a codeword.
func ValidCharAt(soft []int) bool {
	count := 0
	for i := 0; i < 7; i++ {
		if soft[i] > 0 {
			count++
		}
	}
	return count == 4
}

// CodeToChar decodes a codeword under the given shift state. A missing table
// entry (control code or unassigned codeword) returns the negated code as a
// sentinel; callers must not print negative values.
func (c *Codec) CodeToChar(code int, shift bool) int {
	table := &codeToLtrs
	if shift {
		table = &codeToFigs
	}
	if table[code] != '_' {
		return int(table[code])
	}
	return -code
}

// CharToCode appends the codeword(s) needed to transmit ch given the current
// shift state, inserting a LTRS/FIGS control code first if a shift is
// required. ex_shift is updated in place, mirroring char_to_code's ex_shift
// out-parameter.
func (c *Codec) CharToCode(ch byte, exShift *bool) []int {
	if ch >= 'a' && ch <= 'z' {
		ch -= 'a' - 'A'
	}
	if *exShift && c.figsToCode[ch] != 0 {
		return []int{int(c.figsToCode[ch])}
	}
	if !*exShift && c.ltrsToCode[ch] != 0 {
		return []int{int(c.ltrsToCode[ch])}
	}
	if c.figsToCode[ch] != 0 {
		*exShift = true
		return []int{FIGS, int(c.figsToCode[ch])}
	}
	if c.ltrsToCode[ch] != 0 {
		*exShift = false
		return []int{LTRS, int(c.ltrsToCode[ch])}
	}
	return nil
}
