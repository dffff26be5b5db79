// Package export renders the shared history into downloadable documents.
package export

import (
	"io"
	"math"

	"github.com/jung-kurt/gofpdf"

	"sharedcanvas/internal/canvas"
)

const (
	pageWidth  = 210.0 // A4 portrait, mm
	pageHeight = 297.0
	margin     = 10.0
	lineWidth  = 0.5
)

// PDF writes strokes onto a single A4 page. The drawing is scaled down to fit
// inside the margins, never up.
func PDF(w io.Writer, strokes []canvas.Stroke) error {
	p := gofpdf.New("P", "mm", "A4", "")
	p.SetTitle("Shared canvas", true)
	p.AddPage()
	p.SetDrawColor(0, 0, 0)
	p.SetLineWidth(lineWidth)
	p.SetLineCapStyle("round")

	fit := fitPage(strokes)
	for _, s := range strokes {
		x1, y1 := fit.apply(s.StartX, s.StartY)
		x2, y2 := fit.apply(s.EndX, s.EndY)
		p.Line(x1, y1, x2, y2)
	}

	return p.Output(w)
}

type transform struct {
	minX, minY float64
	scale      float64
}

func (t transform) apply(x, y float64) (float64, float64) {
	return margin + (x-t.minX)*t.scale, margin + (y-t.minY)*t.scale
}

func fitPage(strokes []canvas.Stroke) transform {
	if len(strokes) == 0 {
		return transform{scale: 1}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, s := range strokes {
		minX = math.Min(minX, math.Min(s.StartX, s.EndX))
		minY = math.Min(minY, math.Min(s.StartY, s.EndY))
		maxX = math.Max(maxX, math.Max(s.StartX, s.EndX))
		maxY = math.Max(maxY, math.Max(s.StartY, s.EndY))
	}

	scale := 1.0
	if w := maxX - minX; w > 0 {
		scale = math.Min(scale, (pageWidth-2*margin)/w)
	}
	if h := maxY - minY; h > 0 {
		scale = math.Min(scale, (pageHeight-2*margin)/h)
	}
	return transform{minX: minX, minY: minY, scale: scale}
}
