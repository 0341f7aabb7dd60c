package render

import (
	"fmt"
	"image/color"
	"math"
)

// Diverging scale endpoints. The scale is FIXED to [-1, 1] regardless of the
// data's actual range: -1 always maps to the blue extreme, 0 to the white
// midpoint and +1 to the red extreme.
var (
	scaleNegative = color.RGBA{R: 33, G: 102, B: 172, A: 255}
	scaleMidpoint = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	scalePositive = color.RGBA{R: 178, G: 24, B: 43, A: 255}
)

// Scale maps a correlation coefficient onto the diverging color scale with
// linear interpolation per half. Values outside [-1, 1] are clamped; NaN maps
// to a neutral grey so undefined cells stand apart from r = 0.
func Scale(r float64) color.RGBA {
	if math.IsNaN(r) {
		return color.RGBA{R: 224, G: 224, B: 224, A: 255}
	}
	if r < -1 {
		r = -1
	} else if r > 1 {
		r = 1
	}

	if r < 0 {
		return lerp(scaleMidpoint, scaleNegative, -r)
	}
	return lerp(scaleMidpoint, scalePositive, r)
}

// ScaleHex returns the scale color as a CSS hex string for widget markup.
func ScaleHex(r float64) string {
	c := Scale(r)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func lerp(from, to color.RGBA, t float64) color.RGBA {
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
	}
	return color.RGBA{
		R: mix(from.R, to.R),
		G: mix(from.G, to.G),
		B: mix(from.B, to.B),
		A: 255,
	}
}

// textColor picks black or white annotation text for contrast against a cell.
func textColor(bg color.RGBA) color.RGBA {
	// Rec. 601 luma
	luma := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if luma < 140 {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return color.RGBA{A: 255}
}
