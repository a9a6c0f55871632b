package ops

import (
	"image"
	"math"
	"math/rand"

	"github.com/disintegration/imaging"

	"gimg/internal/imgerr"
)

// ValidFilters lists the named filter presets in catalog order.
var ValidFilters = []string{
	"grayscale", "sepia", "blur", "emboss", "contour", "sharpen", "smooth",
	"invert", "posterize", "solarize", "vintage", "dramatic", "warm", "cool",
}

func applyFilter(img *image.NRGBA, name string) (*image.NRGBA, error) {
	switch name {
	case "grayscale":
		return imaging.Grayscale(img), nil
	case "sepia":
		return sepia(img), nil
	case "blur":
		return imaging.Blur(img, 3), nil
	case "emboss":
		return imaging.Convolve3x3(img,
			[9]float64{-1, 0, 0, 0, 1, 0, 0, 0, 0},
			&imaging.ConvolveOptions{Bias: 128},
		), nil
	case "contour":
		return imaging.Convolve3x3(img,
			[9]float64{-1, -1, -1, -1, 8, -1, -1, -1, -1},
			&imaging.ConvolveOptions{Bias: 255},
		), nil
	case "sharpen":
		return imaging.Convolve3x3(img,
			[9]float64{-2, -2, -2, -2, 32, -2, -2, -2, -2},
			&imaging.ConvolveOptions{Normalize: true},
		), nil
	case "smooth":
		return imaging.Convolve5x5(img,
			[25]float64{
				1, 1, 1, 1, 1,
				1, 5, 5, 5, 1,
				1, 5, 44, 5, 1,
				1, 5, 5, 5, 1,
				1, 1, 1, 1, 1,
			},
			&imaging.ConvolveOptions{Normalize: true},
		), nil
	case "invert":
		return imaging.Invert(img), nil
	case "posterize":
		return posterize(img, 3), nil
	case "solarize":
		return solarize(img, 128), nil
	case "vintage":
		return vintage(img), nil
	case "dramatic":
		return dramatic(img), nil
	case "warm":
		return channelScale(img, 1.1, 1.05, 0.9), nil
	case "cool":
		return channelScale(img, 0.9, 1.0, 1.15), nil
	default:
		return nil, &imgerr.ValidationError{Msg: "unknown filter: " + name}
	}
}

func sepia(img *image.NRGBA) *image.NRGBA {
	out := imaging.Grayscale(img)
	p := out.Pix
	for i := 0; i < len(p); i += 4 {
		gray := float64(p[i])
		p[i] = clamp8(gray * 1.2)
		p[i+1] = clamp8(gray * 1.0)
		p[i+2] = clamp8(gray * 0.8)
	}
	return out
}

// posterize keeps the top `bits` bits of every channel.
func posterize(img *image.NRGBA, bits uint) *image.NRGBA {
	mask := uint8(0xff << (8 - bits))
	out := imaging.Clone(img)
	p := out.Pix
	for i := 0; i < len(p); i += 4 {
		p[i] &= mask
		p[i+1] &= mask
		p[i+2] &= mask
	}
	return out
}

func solarize(img *image.NRGBA, threshold uint8) *image.NRGBA {
	out := imaging.Clone(img)
	p := out.Pix
	for i := 0; i < len(p); i += 4 {
		for c := 0; c < 3; c++ {
			if p[i+c] >= threshold {
				p[i+c] = 255 - p[i+c]
			}
		}
	}
	return out
}

func channelScale(img *image.NRGBA, rf, gf, bf float64) *image.NRGBA {
	out := imaging.Clone(img)
	p := out.Pix
	for i := 0; i < len(p); i += 4 {
		p[i] = clamp8(float64(p[i]) * rf)
		p[i+1] = clamp8(float64(p[i+1]) * gf)
		p[i+2] = clamp8(float64(p[i+2]) * bf)
	}
	return out
}

// vintage: a sepia tint blended half-and-half with the original, film grain,
// and a vignette.
func vintage(img *image.NRGBA) *image.NRGBA {
	out := imaging.Clone(img)
	p := out.Pix
	for i := 0; i < len(p); i += 4 {
		r, g, b := float64(p[i]), float64(p[i+1]), float64(p[i+2])
		gray := (r + g + b) / 3
		p[i] = clamp8((gray*1.15)*0.5 + r*0.5 + rand.NormFloat64()*10)
		p[i+1] = clamp8((gray*1.0)*0.5 + g*0.5 + rand.NormFloat64()*10)
		p[i+2] = clamp8((gray*0.85)*0.5 + b*0.5 + rand.NormFloat64()*10)
	}
	return addVignette(out, 0.4)
}

// dramatic: high-contrast black and white with light grain.
func dramatic(img *image.NRGBA) *image.NRGBA {
	out := autoContrast(imaging.Grayscale(img), 2)
	out = adjustContrast(out, 1.5)
	p := out.Pix
	for i := 0; i < len(p); i += 4 {
		noise := rand.NormFloat64() * 8
		v := clamp8(float64(p[i]) + noise)
		p[i], p[i+1], p[i+2] = v, v, v
	}
	return out
}

func addVignette(img *image.NRGBA, strength float64) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cx, cy := float64(w)/2, float64(h)/2
	maxR := math.Sqrt(cx*cx + cy*cy)

	out := imaging.Clone(img)
	p := out.Pix
	for y := 0; y < h; y++ {
		dy := float64(y) - cy
		for x := 0; x < w; x++ {
			dx := float64(x) - cx
			r := math.Sqrt(dx*dx+dy*dy) / maxR
			factor := 1.0 - strength*r*r
			if factor < 0 {
				factor = 0
			}
			i := y*out.Stride + x*4
			p[i] = clamp8(float64(p[i]) * factor)
			p[i+1] = clamp8(float64(p[i+1]) * factor)
			p[i+2] = clamp8(float64(p[i+2]) * factor)
		}
	}
	return out
}
