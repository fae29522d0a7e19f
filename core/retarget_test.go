package core

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
)

func TestReTargetExactSpanUnchanged(t *testing.T) {
	current := uint256.NewInt(1000)
	expected := ExpectedTimeSpan(RetargetWindowBlocks)
	got := ReTarget(current, expected, expected)
	if got.Cmp(current) != 0 {
		t.Fatalf("expected unchanged target %s, got %s", current, got)
	}
}

func TestReTargetDoubleSpanDoublesTarget(t *testing.T) {
	current := uint256.NewInt(1000)
	expected := ExpectedTimeSpan(RetargetWindowBlocks)
	got := ReTarget(current, 2*expected, expected)
	want := uint256.NewInt(2000)
	if got.Cmp(want) != 0 {
		t.Fatalf("expected doubled target %s, got %s", want, got)
	}
}

func TestReTargetHalfSpanHalvesTarget(t *testing.T) {
	current := uint256.NewInt(1000)
	expected := ExpectedTimeSpan(RetargetWindowBlocks)
	got := ReTarget(current, expected/2, expected)
	want := uint256.NewInt(500)
	if got.Cmp(want) != 0 {
		t.Fatalf("expected halved target %s, got %s", want, got)
	}
}

func TestCalMedianBlockTimeOddLength(t *testing.T) {
	base := time.Unix(1000, 0)
	times := []time.Time{
		base,
		base.Add(10 * time.Second),
		base.Add(20 * time.Second),
	}
	got := CalMedianBlockTime(times)
	if !got.Equal(times[1]) {
		t.Fatalf("expected median %v, got %v", times[1], got)
	}
}

func TestCalMedianBlockTimeEvenLengthPicksLowerIndex(t *testing.T) {
	base := time.Unix(1000, 0)
	times := []time.Time{
		base,
		base.Add(10 * time.Second),
		base.Add(20 * time.Second),
		base.Add(30 * time.Second),
	}
	// Even-length window: after stable sort, the lower of the two middle
	// elements (index 1) is the median.
	got := CalMedianBlockTime(times)
	if !got.Equal(times[1]) {
		t.Fatalf("expected lower-middle median %v, got %v", times[1], got)
	}
}

func TestCalMedianBlockTimeTieBreaksByOriginalIndex(t *testing.T) {
	base := time.Unix(1000, 0)
	// Four equal timestamps: every ordering is a tie on time, so the
	// stable sort must preserve original index order, and the even-length
	// median picks index 1 (0-based) among the four equal entries.
	times := []time.Time{base, base, base, base}
	got := CalMedianBlockTime(times)
	if !got.Equal(base) {
		t.Fatalf("expected median %v, got %v", base, got)
	}
}
