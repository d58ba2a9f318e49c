package viz

import (
	"strings"
	"testing"

	"github.com/san-kum/secantlab/internal/secant"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(100, 100)
	c.Set(-1, 0)

	if got := c.Grid[0][0]; got != blank+0x1 {
		t.Errorf("expected dot 1, got %U", got)
	}
	if got := c.Grid[0][1]; got != blank+0x80 {
		t.Errorf("expected dot 8, got %U", got)
	}
	if !c.IsSet(3, 3) || c.IsSet(1, 1) {
		t.Error("IsSet disagrees with Set")
	}

	c.Clear()
	if strings.Trim(c.String(), "⠀\n") != "" {
		t.Errorf("expected blank canvas, got %q", c.String())
	}
}

func TestDrawLine(t *testing.T) {
	c := NewCanvas(4, 1)
	c.DrawLine(0, 0, 7, 0)
	for x := 0; x <= 7; x++ {
		if !c.IsSet(x, 0) {
			t.Errorf("pixel %d not set", x)
		}
	}
}

func TestPlanePixel(t *testing.T) {
	pl := NewPlane(10, 5, -1, 1, -1, 1)

	tests := []struct {
		p      secant.Point
		x, y   int
		inside bool
	}{
		{secant.Point{Real: -1, Imag: 1}, 0, 0, true},
		{secant.Point{Real: 1, Imag: -1}, 19, 19, true},
		{secant.Point{Real: 2, Imag: 0}, 0, 0, false},
	}
	for _, tt := range tests {
		x, y, ok := pl.Pixel(tt.p)
		if ok != tt.inside || (ok && (x != tt.x || y != tt.y)) {
			t.Errorf("%v: expected (%d,%d,%v), got (%d,%d,%v)", tt.p, tt.x, tt.y, tt.inside, x, y, ok)
		}
	}
}

func TestFitPlaneSkipsOutliers(t *testing.T) {
	pts := []secant.Point{{Real: 0, Imag: 0}, {Real: 1, Imag: 2}, {Real: 1e30}}
	pl := FitPlane(10, 5, pts, TrajectoryLimit)

	if pl.XMax > 2 || pl.XMin > 0 || pl.YMax < 2 {
		t.Errorf("unexpected bounds: [%g,%g]x[%g,%g]", pl.XMin, pl.XMax, pl.YMin, pl.YMax)
	}

	empty := FitPlane(10, 5, nil, TrajectoryLimit)
	if empty.XMin != -2 || empty.XMax != 2 {
		t.Errorf("expected default box, got [%g,%g]", empty.XMin, empty.XMax)
	}
}

func TestDegeneratePlane(t *testing.T) {
	pl := NewPlane(4, 4, 1, 1, 0, 0)
	if _, _, ok := pl.Pixel(secant.Point{Real: 1}); !ok {
		t.Error("single point should fall inside the widened plane")
	}
}
