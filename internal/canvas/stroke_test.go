package canvas_test

import (
	"errors"
	"math"
	"testing"

	"sharedcanvas/internal/canvas"
)

func TestParseStroke(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    canvas.Stroke
		wantErr error
	}{
		{
			name: "integers",
			raw:  `{"startX":0,"startY":0,"endX":10,"endY":10}`,
			want: canvas.Stroke{EndX: 10, EndY: 10},
		},
		{
			name: "fractions and negatives",
			raw:  `{"startX":-1.5,"startY":2.25,"endX":3e2,"endY":0.001}`,
			want: canvas.Stroke{StartX: -1.5, StartY: 2.25, EndX: 300, EndY: 0.001},
		},
		{
			name: "extra fields ignored",
			raw:  `{"startX":1,"startY":2,"endX":3,"endY":4,"color":"red"}`,
			want: canvas.Stroke{StartX: 1, StartY: 2, EndX: 3, EndY: 4},
		},
		{
			name:    "missing coordinate",
			raw:     `{"startX":1,"startY":2,"endX":3}`,
			wantErr: canvas.ErrMissingCoordinate,
		},
		{
			name:    "string coordinate",
			raw:     `{"startX":"1","startY":2,"endX":3,"endY":4}`,
			wantErr: canvas.ErrInvalidCoordinate,
		},
		{
			name:    "null coordinate",
			raw:     `{"startX":null,"startY":2,"endX":3,"endY":4}`,
			wantErr: canvas.ErrInvalidCoordinate,
		},
		{
			name:    "overflowing coordinate",
			raw:     `{"startX":1e400,"startY":2,"endX":3,"endY":4}`,
			wantErr: canvas.ErrInvalidCoordinate,
		},
		{
			name:    "array payload",
			raw:     `[0,0,10,10]`,
			wantErr: canvas.ErrMalformedStroke,
		},
		{
			name:    "empty payload",
			raw:     ``,
			wantErr: canvas.ErrMalformedStroke,
		},
		{
			name:    "broken json",
			raw:     `{"startX":1,`,
			wantErr: canvas.ErrMalformedStroke,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := canvas.ParseStroke([]byte(tt.raw))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseStroke() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStroke() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseStroke() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStrokeFinite(t *testing.T) {
	if !(canvas.Stroke{StartX: 1, EndY: -3}).Finite() {
		t.Error("finite stroke reported as non-finite")
	}
	if (canvas.Stroke{StartY: math.NaN()}).Finite() {
		t.Error("NaN stroke reported as finite")
	}
	if (canvas.Stroke{EndX: math.Inf(1)}).Finite() {
		t.Error("infinite stroke reported as finite")
	}
}
