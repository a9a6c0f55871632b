package ops

import (
	"image"

	"github.com/disintegration/imaging"
)

// The enhancement primitives mirror the classic enhance(factor) contract:
// factor 1.0 is the identity, 0.0 is the fully degenerate image (black, flat
// gray, grayscale, smoothed), values above 1.0 extrapolate. Each one runs a
// single pass over the NRGBA pixel buffer.

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func luminance(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

// adjustBrightness scales each channel toward black (f<1) or beyond the
// original (f>1).
func adjustBrightness(img *image.NRGBA, f float64) *image.NRGBA {
	out := imaging.Clone(img)
	p := out.Pix
	for i := 0; i < len(p); i += 4 {
		p[i] = clamp8(float64(p[i]) * f)
		p[i+1] = clamp8(float64(p[i+1]) * f)
		p[i+2] = clamp8(float64(p[i+2]) * f)
	}
	return out
}

// adjustContrast interpolates between a flat image at the mean luminance
// and the original.
func adjustContrast(img *image.NRGBA, f float64) *image.NRGBA {
	p := img.Pix
	var sum float64
	n := 0
	for i := 0; i < len(p); i += 4 {
		sum += luminance(float64(p[i]), float64(p[i+1]), float64(p[i+2]))
		n++
	}
	if n == 0 {
		return imaging.Clone(img)
	}
	mean := sum / float64(n)

	out := imaging.Clone(img)
	q := out.Pix
	for i := 0; i < len(q); i += 4 {
		q[i] = clamp8(mean + (float64(q[i])-mean)*f)
		q[i+1] = clamp8(mean + (float64(q[i+1])-mean)*f)
		q[i+2] = clamp8(mean + (float64(q[i+2])-mean)*f)
	}
	return out
}

// adjustSaturation interpolates between the per-pixel grayscale value and
// the original color.
func adjustSaturation(img *image.NRGBA, f float64) *image.NRGBA {
	out := imaging.Clone(img)
	p := out.Pix
	for i := 0; i < len(p); i += 4 {
		gray := luminance(float64(p[i]), float64(p[i+1]), float64(p[i+2]))
		p[i] = clamp8(gray + (float64(p[i])-gray)*f)
		p[i+1] = clamp8(gray + (float64(p[i+1])-gray)*f)
		p[i+2] = clamp8(gray + (float64(p[i+2])-gray)*f)
	}
	return out
}

// adjustSharpness interpolates between a 3x3-smoothed copy and the original.
func adjustSharpness(img *image.NRGBA, f float64) *image.NRGBA {
	smooth := imaging.Convolve3x3(img,
		[9]float64{1, 1, 1, 1, 5, 1, 1, 1, 1},
		&imaging.ConvolveOptions{Normalize: true},
	)
	out := imaging.Clone(img)
	p, s := out.Pix, smooth.Pix
	for i := 0; i < len(p); i += 4 {
		p[i] = clamp8(float64(s[i]) + (float64(p[i])-float64(s[i]))*f)
		p[i+1] = clamp8(float64(s[i+1]) + (float64(p[i+1])-float64(s[i+1]))*f)
		p[i+2] = clamp8(float64(s[i+2]) + (float64(p[i+2])-float64(s[i+2]))*f)
	}
	return out
}

// shiftHue rotates every pixel's hue by the given degrees in one pass over
// the buffer.
func shiftHue(img *image.NRGBA, degrees float64) *image.NRGBA {
	shift := degrees / 360.0
	out := imaging.Clone(img)
	p := out.Pix
	for i := 0; i < len(p); i += 4 {
		h, s, v := rgbToHSV(float64(p[i])/255, float64(p[i+1])/255, float64(p[i+2])/255)
		h += shift
		h -= float64(int(h))
		if h < 0 {
			h += 1
		}
		r, g, b := hsvToRGB(h, s, v)
		p[i] = clamp8(r * 255)
		p[i+1] = clamp8(g * 255)
		p[i+2] = clamp8(b * 255)
	}
	return out
}

func rgbToHSV(r, g, b float64) (h, s, v float64) {
	maxc := r
	if g > maxc {
		maxc = g
	}
	if b > maxc {
		maxc = b
	}
	minc := r
	if g < minc {
		minc = g
	}
	if b < minc {
		minc = b
	}
	v = maxc
	if maxc == minc {
		return 0, 0, v
	}
	d := maxc - minc
	s = d / maxc
	switch maxc {
	case r:
		h = (g - b) / d
	case g:
		h = 2 + (b-r)/d
	default:
		h = 4 + (r-g)/d
	}
	h /= 6
	if h < 0 {
		h += 1
	}
	return h, s, v
}

func hsvToRGB(h, s, v float64) (r, g, b float64) {
	if s == 0 {
		return v, v, v
	}
	h6 := h * 6
	i := int(h6)
	f := h6 - float64(i)
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch i % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

// autoContrast stretches each channel so that `cutoff` percent of pixels
// saturate at each end of the histogram. Alpha is untouched.
func autoContrast(img *image.NRGBA, cutoff float64) *image.NRGBA {
	out := imaging.Clone(img)
	p := out.Pix
	total := len(p) / 4
	if total == 0 {
		return out
	}

	for c := 0; c < 3; c++ {
		var hist [256]int
		for i := c; i < len(p); i += 4 {
			hist[p[i]]++
		}

		cut := int(float64(total) * cutoff / 100)
		lo, hi := 0, 255
		for acc := 0; lo < 256; lo++ {
			acc += hist[lo]
			if acc > cut {
				break
			}
		}
		for acc := 0; hi >= 0; hi-- {
			acc += hist[hi]
			if acc > cut {
				break
			}
		}
		if lo >= hi {
			continue
		}

		scale := 255.0 / float64(hi-lo)
		var lut [256]uint8
		for v := 0; v < 256; v++ {
			lut[v] = clamp8(float64(v-lo) * scale)
		}
		for i := c; i < len(p); i += 4 {
			p[i] = lut[p[i]]
		}
	}
	return out
}
