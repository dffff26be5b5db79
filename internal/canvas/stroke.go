package canvas

import (
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/gjson"
)

// Stroke is one straight segment in canvas coordinates. Color and width are
// client-side constants and never travel over the wire.
type Stroke struct {
	StartX float64 `json:"startX"`
	StartY float64 `json:"startY"`
	EndX   float64 `json:"endX"`
	EndY   float64 `json:"endY"`
}

var (
	ErrMalformedStroke   = errors.New("stroke payload is not a JSON object")
	ErrMissingCoordinate = errors.New("stroke coordinate missing")
	ErrInvalidCoordinate = errors.New("stroke coordinate is not a finite number")
)

var strokeFields = []string{"startX", "startY", "endX", "endY"}

// ParseStroke reads a draw payload. Every coordinate has to be present and
// be a finite JSON number; anything else is rejected so a single bad client
// cannot poison the shared history.
func ParseStroke(raw []byte) (Stroke, error) {
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return Stroke{}, ErrMalformedStroke
	}

	var coords [4]float64
	for i, res := range gjson.GetManyBytes(raw, strokeFields...) {
		if !res.Exists() {
			return Stroke{}, fmt.Errorf("%w: %s", ErrMissingCoordinate, strokeFields[i])
		}
		if res.Type != gjson.Number || !finite(res.Num) {
			return Stroke{}, fmt.Errorf("%w: %s=%s", ErrInvalidCoordinate, strokeFields[i], res.Raw)
		}
		coords[i] = res.Num
	}

	return Stroke{StartX: coords[0], StartY: coords[1], EndX: coords[2], EndY: coords[3]}, nil
}

// Finite reports whether all four coordinates are finite.
func (s Stroke) Finite() bool {
	return finite(s.StartX) && finite(s.StartY) && finite(s.EndX) && finite(s.EndY)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
