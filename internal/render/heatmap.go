package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"clinviz/internal/correlation"
	"clinviz/internal/errors"
)

// HeatmapConfig controls the correlation heatmap raster export.
type HeatmapConfig struct {
	Width       int
	Height      int
	LabelMargin int  // pixels reserved for axis labels
	Annotate    bool // draw "r stars" inside each cell
}

// DefaultHeatmapConfig returns the standard fixed-resolution export settings.
func DefaultHeatmapConfig() HeatmapConfig {
	return HeatmapConfig{
		Width:       900,
		Height:      900,
		LabelMargin: 150,
		Annotate:    true,
	}
}

// HeatmapPNG renders the flattened correlation pairs as a grid heatmap at the
// configured fixed resolution. Cells absent from the pair list (the discarded
// triangular half) stay empty. Colors come from the fixed [-1, 1] scale.
func HeatmapPNG(path string, m *correlation.Matrix, pairs []correlation.Pair, cfg HeatmapConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.NewValidationError("heatmap dimensions must be positive")
	}
	n := m.Dim()
	if n == 0 {
		return errors.NewValidationError("empty correlation matrix")
	}

	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	margin := cfg.LabelMargin
	if margin <= 0 {
		margin = 150
	}
	gridW := cfg.Width - margin
	gridH := cfg.Height - margin
	cellW := gridW / n
	cellH := gridH / n

	index := make(map[string]int, n)
	for i, name := range m.Columns {
		index[name] = i
	}

	for _, p := range pairs {
		row, col := index[p.Row], index[p.Col]
		x0 := margin + col*cellW
		y0 := margin + row*cellH

		bg := Scale(p.R)
		fillRect(img, x0+1, y0+1, cellW-2, cellH-2, bg)

		if cfg.Annotate {
			label := fmt.Sprintf("%.2f", p.R)
			if p.Stars != "" && p.Stars != correlation.NAMarker {
				label += p.Stars
			}
			drawCentered(img, label, x0+cellW/2, y0+cellH/2, textColor(bg))
		}
	}

	// axis labels: variable display labels down the left and across the top
	for i, label := range m.Labels {
		drawLeft(img, truncate(label, margin/7), margin-6, margin+i*cellH+cellH/2)
		drawCentered(img, truncate(label, cellW/7), margin+i*cellW+cellW/2, margin/2+i%2*12, color.RGBA{A: 255})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create directory for heatmap", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create heatmap file", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return errors.NewRenderError("failed to encode heatmap PNG", err)
	}
	return nil
}

func fillRect(img *image.RGBA, x, y, w, h int, c color.RGBA) {
	draw.Draw(img, image.Rect(x, y, x+w, y+h), image.NewUniform(c), image.Point{}, draw.Src)
}

func drawCentered(img *image.RGBA, s string, cx, cy int, c color.RGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, s).Ceil()
	drawString(img, s, cx-width/2, cy+face.Height/3, c)
}

func drawLeft(img *image.RGBA, s string, right, cy int) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, s).Ceil()
	drawString(img, s, right-width, cy+face.Height/3, color.RGBA{A: 255})
}

func drawString(img *image.RGBA, s string, x, y int, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func truncate(s string, max int) string {
	if max < 4 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
