package navtex

import "github.com/f4ecw/navtexrx/internal/ccir476"

// repOffset is how many bit positions earlier the "rep" (duplicate) copy of
// a character sits relative to its "alpha" (primary) copy: 5 characters of
// 7 bits each.
const repOffset = 35

// findAlphaCharacters searches the bit buffer for the alpha/rep phase
// alignment: among offsets in [35, 49) with at least 3 confirmed alpha/rep
// pairings, the one with the highest count of valid characters plus
// pairings. Returns -1 unless that best count exceeds 8.
func (r *Receiver) findAlphaCharacters() int {
	n := len(r.bitValues)
	limit := n - 7
	bestOffset := 0
	bestScore := 0

	for offset := repOffset; offset < repOffset+14; offset++ {
		score := 0
		reps := 0

		for i := offset; i < limit; i += 7 {
			chunk := r.bitValues[i : i+7]
			if !ccir476.ValidCharAt(chunk) {
				continue
			}

			code := ccir476.BitsToCode(chunk)
			rep := ccir476.BitsToCode(r.bitValues[i-repOffset : i-repOffset+7])
			score++

			if code == rep {
				if code == ccir476.Alpha || code == ccir476.Rep {
					score = 0
					continue
				}
				reps++
			} else if code == ccir476.Alpha {
				prev := ccir476.BitsToCode(r.bitValues[i-7 : i])
				if prev == ccir476.Rep {
					reps++
				}
			}
		}

		if reps >= 3 && score+reps > bestScore {
			bestScore = score + reps
			bestOffset = offset
		}
	}

	if bestScore > 8 {
		return bestOffset
	}
	return -1
}

// processBytes decodes the 7-bit character starting at bit position c,
// combining its alpha copy with the rep copy 35 bits earlier via
// confidence-weighted FEC when the alpha copy alone doesn't check out.
//
// Returns 1 for a clean alpha decode, 0 for an FEC replacement that
// shouldn't be charged as an error, -1 for a soft FEC recovery, and -2 for a
// hard failure.
func (r *Receiver) processBytes(c int) (int, error) {
	alpha := r.bitValues[c : c+7]
	code := ccir476.BitsToCode(alpha)

	if ccir476.CheckBits(code) {
		return 1, r.processChar(code)
	}

	repPos := c - repOffset
	if repPos < 0 {
		return -1, nil
	}

	rep := r.bitValues[repPos : repPos+7]
	repCode := ccir476.BitsToCode(rep)
	if ccir476.CheckBits(repCode) {
		if repCode == ccir476.Rep {
			// The alpha slot is probably itself a REP; decoding here would
			// flip alpha/rep phase, so skip it.
			return 0, nil
		}
		return 0, r.processChar(repCode)
	}

	avg := make([]int, 7)
	for i := 0; i < 7; i++ {
		avg[i] = alpha[i] + rep[i]
	}
	if calc := ccir476.BitsToCode(avg); ccir476.CheckBits(calc) {
		return -1, r.processChar(calc)
	}

	alphaSaved := append([]int(nil), alpha...)
	flipSmallestBit(alpha)
	if calc := ccir476.BitsToCode(alpha); ccir476.CheckBits(calc) {
		return -1, r.processChar(calc)
	}
	copy(alpha, alphaSaved)

	flipSmallestBit(rep)
	if calc := ccir476.BitsToCode(rep); ccir476.CheckBits(calc) {
		return -1, r.processChar(calc)
	}

	flipSmallestBit(avg)
	if calc := ccir476.BitsToCode(avg); ccir476.CheckBits(calc) {
		return -1, r.processChar(calc)
	}

	return -2, nil
}

// flipSmallestBit negates the least-confident value of a seven-value
// character. With four negative values (popcount 3) it negates the negative
// value closest to zero, giving popcount 4. The "ones" count is deliberately
// initialized at 1 (not 0), an off-by-one preserved from the reference
// decoder that makes the two trigger conditions asymmetric (c0 == 4 vs
// c1 == 5): the second branch fires when exactly four values are
// non-negative and negates the smallest of them, so a popcount-5 character
// (c1 == 6) is left unchanged.
func flipSmallestBit(pos []int) {
	minZero, minOne := minInt, maxInt
	minZeroPos, minOnePos := -1, -1
	countZero, countOne := 0, 1

	for i, v := range pos {
		if v < 0 {
			countZero++
			if v > minZero {
				minZero = v
				minZeroPos = i
			}
		} else {
			countOne++
			if v < minOne {
				minOne = v
				minOnePos = i
			}
		}
	}

	if countZero == 4 && minZeroPos >= 0 {
		pos[minZeroPos] = -pos[minZeroPos]
	} else if countOne == 5 && minOnePos >= 0 {
		pos[minOnePos] = -pos[minOnePos]
	}
}

const (
	minInt = -1 << 62
	maxInt = 1<<62 - 1
)
