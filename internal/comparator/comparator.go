// Package comparator scores a candidate photo of a room against a reference
// photo and classifies the room as clean or not clean.
package comparator

import (
	"fmt"
	"image"
	"math"

	"github.com/example/room-check/internal/imageprocessor"
	"github.com/example/room-check/internal/ssim"
)

const (
	// MinDimension is the smallest width or height accepted for either image.
	MinDimension = 7
	// CanonicalSize is the side both images are resampled to before scoring.
	CanonicalSize = 300
	// MaxWindow bounds the SSIM window.
	MaxWindow = 11
	// CleanThreshold is the lowest score classified as clean.
	CleanThreshold = 0.7
)

// Verdict is the binary classification of a comparison.
type Verdict string

const (
	VerdictClean    Verdict = "clean"
	VerdictNotClean Verdict = "not_clean"
)

// Result is the outcome of a single comparison.
type Result struct {
	Score   float64
	Verdict Verdict
}

// Message returns the human readable form of the verdict.
func (r Result) Message() string {
	if r.Verdict == VerdictClean {
		return "The room is clean compared to the master image."
	}
	return "The room is not clean compared to the master image."
}

// Classify maps a similarity score to a verdict.
func Classify(score float64) Verdict {
	if score >= CleanThreshold {
		return VerdictClean
	}
	return VerdictNotClean
}

// Comparator compares candidates against a reference normalized once at
// construction. It is safe for concurrent use; the reference is never written.
type Comparator struct {
	reference *image.RGBA
}

// NewComparator validates and normalizes reference.
func NewComparator(reference image.Image) (*Comparator, error) {
	ref, err := normalize(InputReference, reference)
	if err != nil {
		return nil, err
	}
	return &Comparator{reference: ref}, nil
}

// Compare scores candidate against the stored reference.
func (c *Comparator) Compare(candidate image.Image) (Result, error) {
	cand, err := normalize(InputCandidate, candidate)
	if err != nil {
		return Result{}, err
	}
	return score(c.reference, cand)
}

// Compare scores candidate against reference without keeping any state.
func Compare(reference, candidate image.Image) (Result, error) {
	c, err := NewComparator(reference)
	if err != nil {
		return Result{}, err
	}
	return c.Compare(candidate)
}

func normalize(input Input, img image.Image) (*image.RGBA, error) {
	if img == nil {
		return nil, NewInvalidImageError(input, "image is missing", nil)
	}
	size := img.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		return nil, NewInvalidImageError(input, fmt.Sprintf("image has no area (%dx%d)", size.X, size.Y), nil)
	}
	if size.X < MinDimension || size.Y < MinDimension {
		return nil, NewInvalidImageError(input,
			fmt.Sprintf("image is %dx%d, minimum is %dx%d", size.X, size.Y, MinDimension, MinDimension), nil)
	}
	return imageprocessor.Resize(img, CanonicalSize, CanonicalSize), nil
}

func score(reference, candidate *image.RGBA) (Result, error) {
	s, err := ssim.Compute(reference, candidate, ssim.Options{Window: windowSize(reference.Rect.Size())})
	if err != nil {
		return Result{}, err
	}
	s = math.Max(-1, math.Min(1, s))
	return Result{Score: s, Verdict: Classify(s)}, nil
}

// windowSize picks the default SSIM window bounded by MaxWindow and the
// smaller image side, rounded down to an odd number.
func windowSize(size image.Point) int {
	win := min(ssim.DefaultWindow, MaxWindow, size.X, size.Y)
	if win%2 == 0 {
		win--
	}
	return win
}
