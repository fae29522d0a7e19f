// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Difficulty Retargeting
// ----------------------------------------------------
//
//   - spec.md §8 scenario 8 and §9's design note: given a block window
//     spaced at exactly the expected time span, ReTarget returns the
//     current target unchanged; at twice the expected span (blocks
//     arrived slower than planned), it doubles the target; at half,
//     it halves it. Implemented as an integer ratio scaling of
//     currentTarget by observedTimeSpan/expectedTimeSpan rather than any
//     floating-point approximation, so retargeting stays exactly
//     reproducible across nodes.
//
//   - CalMedianBlockTime resolves spec.md §9's open question: ties between
//     equal timestamps in the window are broken by original index (earlier
//     index first), and an even-length window returns the lower-index of
//     its two middle elements as the median — pinned by retarget_test.go
//     rather than left ambiguous.
//
//   - No direct pack analogue: the retrieved teacher and examples ship no
//     difficulty-adjustment code in scope (full L1 consensus packages in
//     the pack are out of scope for this VM/compiler teacher). Implemented
//     directly from spec.md's literal worked examples.
package core

import (
	"sort"
	"time"

	"github.com/holiman/uint256"
)

// RetargetWindowBlocks is the number of blocks a retarget decision looks
// back over, per spec.md §8 scenario 8's literal 18-block example.
const RetargetWindowBlocks = 18

// BlockTargetTime is the expected spacing between consecutive blocks the
// retarget algorithm targets.
const BlockTargetTime = 16 * time.Second

// CalMedianBlockTime returns the median of timestamps. Ties (equal
// timestamps) are broken by original index, earlier index first; on an
// even-length input, the lower-index of the two middle elements (after
// this stable ordering) is returned.
func CalMedianBlockTime(timestamps []time.Time) time.Time {
	if len(timestamps) == 0 {
		return time.Time{}
	}
	type indexed struct {
		t   time.Time
		idx int
	}
	items := make([]indexed, len(timestamps))
	for i, t := range timestamps {
		items[i] = indexed{t: t, idx: i}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].t.Equal(items[j].t) {
			return items[i].idx < items[j].idx
		}
		return items[i].t.Before(items[j].t)
	})
	mid := (len(items) - 1) / 2
	return items[mid].t
}

// ReTarget scales currentTarget by the ratio observedTimeSpan/
// expectedTimeSpan: blocks arriving slower than expected (observed >
// expected) raise the target, making the next window easier to hit;
// blocks arriving faster lower it. expectedTimeSpan <= 0 leaves the
// target unchanged, since there is nothing to compare the observation
// against.
func ReTarget(currentTarget *uint256.Int, observedTimeSpan, expectedTimeSpan time.Duration) *uint256.Int {
	if expectedTimeSpan <= 0 {
		return new(uint256.Int).Set(currentTarget)
	}
	if observedTimeSpan < 0 {
		observedTimeSpan = 0
	}
	observed := uint256.NewInt(uint64(observedTimeSpan))
	expected := uint256.NewInt(uint64(expectedTimeSpan))
	result := new(uint256.Int).Mul(currentTarget, observed)
	return result.Div(result, expected)
}

// ExpectedTimeSpan is the time a window of n block intervals should take
// at BlockTargetTime spacing.
func ExpectedTimeSpan(blockIntervals int) time.Duration {
	return time.Duration(blockIntervals) * BlockTargetTime
}

// RetargetFromWindow computes the observed time span of a RetargetWindowBlocks-
// sized window as the difference between the median-block-time of its
// second half and its first half, then scales currentTarget by that
// observation against the window's expected span — the common
// median-time-past construction used to resist single-block timestamp
// manipulation, applied here to this spec's ReTarget/CalMedianBlockTime
// primitives.
func RetargetFromWindow(currentTarget *uint256.Int, timestamps []time.Time) *uint256.Int {
	n := len(timestamps)
	if n < 2 {
		return new(uint256.Int).Set(currentTarget)
	}
	half := n / 2
	firstMedian := CalMedianBlockTime(timestamps[:half])
	secondMedian := CalMedianBlockTime(timestamps[n-half:])
	observed := secondMedian.Sub(firstMedian)
	expected := ExpectedTimeSpan(n - half)
	return ReTarget(currentTarget, observed, expected)
}
