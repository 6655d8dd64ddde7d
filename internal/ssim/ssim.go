// Package ssim computes the mean structural similarity index between two
// equally sized RGB rasters.
//
// The constants and the windowing follow the scikit-image defaults: a
// uniform square window, K1=0.01, K2=0.03, a data range of 255 and the
// unbiased sample covariance. Only windows that lie fully inside the image
// contribute to the mean, so no border padding is involved.
package ssim

import (
	"errors"
	"fmt"
	"image"
)

const (
	// DefaultWindow is the side of the uniform window when none is given.
	DefaultWindow = 7

	k1        = 0.01
	k2        = 0.03
	dataRange = 255.0
)

var (
	// ErrSizeMismatch is returned when the two images do not share bounds.
	ErrSizeMismatch = errors.New("ssim: images must have identical dimensions")
	// ErrInvalidWindow is returned for even, non-positive or oversized windows.
	ErrInvalidWindow = errors.New("ssim: invalid window size")
)

// Options tunes the computation. The zero value uses DefaultWindow.
type Options struct {
	Window int
}

// Compute returns the mean SSIM of a and b averaged over the R, G and B
// channels. Alpha is ignored.
func Compute(a, b *image.RGBA, opts Options) (float64, error) {
	if a == nil || b == nil {
		return 0, ErrSizeMismatch
	}
	if a.Rect.Dx() != b.Rect.Dx() || a.Rect.Dy() != b.Rect.Dy() {
		return 0, fmt.Errorf("%w: %v vs %v", ErrSizeMismatch, a.Rect.Size(), b.Rect.Size())
	}

	win := opts.Window
	if win == 0 {
		win = DefaultWindow
	}
	w, h := a.Rect.Dx(), a.Rect.Dy()
	if win < 1 || win%2 == 0 || win > w || win > h {
		return 0, fmt.Errorf("%w: %d for %dx%d image", ErrInvalidWindow, win, w, h)
	}

	var total float64
	for c := 0; c < 3; c++ {
		total += channelSSIM(plane(a, c), plane(b, c), w, h, win)
	}
	return total / 3, nil
}

// plane extracts channel c of img as a dense w*h slice of float64.
func plane(img *image.RGBA, c int) []float64 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			out[y*w+x] = float64(row[x*4+c])
		}
	}
	return out
}

func channelSSIM(x, y []float64, w, h, win int) float64 {
	sx := newTable(w, h, func(i int) float64 { return x[i] })
	sy := newTable(w, h, func(i int) float64 { return y[i] })
	sxx := newTable(w, h, func(i int) float64 { return x[i] * x[i] })
	syy := newTable(w, h, func(i int) float64 { return y[i] * y[i] })
	sxy := newTable(w, h, func(i int) float64 { return x[i] * y[i] })

	np := float64(win * win)
	covNorm := np / (np - 1)
	c1 := (k1 * dataRange) * (k1 * dataRange)
	c2 := (k2 * dataRange) * (k2 * dataRange)

	var sum float64
	var count int
	for y0 := 0; y0+win <= h; y0++ {
		for x0 := 0; x0+win <= w; x0++ {
			ux := sx.sum(x0, y0, win) / np
			uy := sy.sum(x0, y0, win) / np
			uxx := sxx.sum(x0, y0, win) / np
			uyy := syy.sum(x0, y0, win) / np
			uxy := sxy.sum(x0, y0, win) / np

			vx := covNorm * (uxx - ux*ux)
			vy := covNorm * (uyy - uy*uy)
			vxy := covNorm * (uxy - ux*uy)

			num := (2*ux*uy + c1) * (2*vxy + c2)
			den := (ux*ux + uy*uy + c1) * (vx + vy + c2)
			sum += num / den
			count++
		}
	}
	return sum / float64(count)
}

// table is a summed-area table with a zero row and column prepended.
type table struct {
	w    int
	vals []float64
}

func newTable(w, h int, f func(i int) float64) table {
	t := table{w: w + 1, vals: make([]float64, (w+1)*(h+1))}
	for y := 0; y < h; y++ {
		var row float64
		for x := 0; x < w; x++ {
			row += f(y*w + x)
			t.vals[(y+1)*t.w+x+1] = t.vals[y*t.w+x+1] + row
		}
	}
	return t
}

func (t table) sum(x0, y0, win int) float64 {
	x1, y1 := x0+win, y0+win
	return t.vals[y1*t.w+x1] - t.vals[y0*t.w+x1] - t.vals[y1*t.w+x0] + t.vals[y0*t.w+x0]
}
