package comparator

import (
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func noise(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
		if i%4 == 3 {
			img.Pix[i] = 255
		}
	}
	return img
}

func TestCompareImageWithItselfIsClean(t *testing.T) {
	img := noise(640, 480, 3)

	result, err := Compare(img, img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 1 {
		t.Fatalf("expected score 1, got %v", result.Score)
	}
	if result.Verdict != VerdictClean {
		t.Fatalf("expected clean verdict, got %s", result.Verdict)
	}
}

func TestCompareBlackAgainstWhiteIsNotClean(t *testing.T) {
	black := solid(CanonicalSize, CanonicalSize, color.Black)
	white := solid(CanonicalSize, CanonicalSize, color.White)

	result, err := Compare(black, white)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score > 0.01 {
		t.Fatalf("expected score near zero, got %v", result.Score)
	}
	if result.Verdict != VerdictNotClean {
		t.Fatalf("expected not_clean verdict, got %s", result.Verdict)
	}
}

func TestCompareRejectsInvalidCandidates(t *testing.T) {
	reference := noise(50, 50, 1)
	cases := map[string]image.Image{
		"nil":         nil,
		"zero width":  image.NewRGBA(image.Rect(0, 0, 0, 20)),
		"zero height": image.NewRGBA(image.Rect(0, 0, 20, 0)),
		"too small":   noise(6, 6, 2),
		"too narrow":  noise(6, 100, 2),
	}

	for name, candidate := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Compare(reference, candidate)
			var invalid *InvalidImageError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidImageError, got %v", err)
			}
			if invalid.Input != InputCandidate {
				t.Fatalf("expected candidate input, got %s", invalid.Input)
			}
		})
	}
}

func TestNewComparatorRejectsSmallReference(t *testing.T) {
	_, err := NewComparator(noise(5, 40, 1))
	var invalid *InvalidImageError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidImageError, got %v", err)
	}
	if invalid.Input != InputReference {
		t.Fatalf("expected reference input, got %s", invalid.Input)
	}
}

func TestCompareAcceptsMinimumSize(t *testing.T) {
	img := noise(MinDimension, MinDimension, 4)
	if _, err := Compare(img, img); err != nil {
		t.Fatalf("expected 7x7 image to be accepted, got %v", err)
	}
}

func TestCompareScoreInRange(t *testing.T) {
	c, err := NewComparator(noise(120, 80, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for seed := int64(20); seed < 24; seed++ {
		result, err := c.Compare(noise(90, 150, seed))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Score < -1 || result.Score > 1 {
			t.Fatalf("score %v out of range", result.Score)
		}
	}
}

func TestClassifyThreshold(t *testing.T) {
	tests := []struct {
		score float64
		want  Verdict
	}{
		{1, VerdictClean},
		{CleanThreshold, VerdictClean},
		{0.6999, VerdictNotClean},
		{0, VerdictNotClean},
		{-0.5, VerdictNotClean},
	}
	for _, tt := range tests {
		if got := Classify(tt.score); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestWindowSizeIsOddAndBounded(t *testing.T) {
	tests := []struct {
		size image.Point
		want int
	}{
		{image.Pt(CanonicalSize, CanonicalSize), 7},
		{image.Pt(6, 300), 5},
		{image.Pt(3, 3), 3},
	}
	for _, tt := range tests {
		if got := windowSize(tt.size); got != tt.want {
			t.Errorf("windowSize(%v) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestResultMessage(t *testing.T) {
	if msg := (Result{Verdict: VerdictClean}).Message(); msg != "The room is clean compared to the master image." {
		t.Fatalf("unexpected clean message %q", msg)
	}
	if msg := (Result{Verdict: VerdictNotClean}).Message(); msg != "The room is not clean compared to the master image." {
		t.Fatalf("unexpected not clean message %q", msg)
	}
}

func TestInvalidImageErrorSummaryOmitsCause(t *testing.T) {
	err := &InvalidImageError{Input: InputCandidate, Reason: "could not decode upload", Err: errors.New("png: invalid format")}
	if got := err.Summary(); got != "invalid candidate image: could not decode upload" {
		t.Fatalf("unexpected summary %q", got)
	}
	if got := err.Error(); got != "invalid candidate image: could not decode upload: png: invalid format" {
		t.Fatalf("unexpected error %q", got)
	}
}
