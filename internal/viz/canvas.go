package viz

import (
	"math"
	"strings"

	"github.com/san-kum/secantlab/internal/secant"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set turns on the dot at sub-pixel (x, y). The canvas is Width*2 by
// Height*4 sub-pixels; points outside are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Plane maps a rectangle of the complex plane onto a canvas, imaginary
// axis pointing up.
type Plane struct {
	*Canvas
	XMin, XMax, YMin, YMax float64
}

func NewPlane(w, h int, xmin, xmax, ymin, ymax float64) *Plane {
	if xmax <= xmin {
		xmin, xmax = xmin-1, xmin+1
	}
	if ymax <= ymin {
		ymin, ymax = ymin-1, ymin+1
	}
	return &Plane{Canvas: NewCanvas(w, h), XMin: xmin, XMax: xmax, YMin: ymin, YMax: ymax}
}

// FitPlane sizes a plane around pts with a 10% margin, ignoring points
// farther than limit from the origin.
func FitPlane(w, h int, pts []secant.Point, limit float64) *Plane {
	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		if !p.IsValid() || p.Abs() > limit {
			continue
		}
		xmin, xmax = math.Min(xmin, p.Real), math.Max(xmax, p.Real)
		ymin, ymax = math.Min(ymin, p.Imag), math.Max(ymax, p.Imag)
	}
	if math.IsInf(xmin, 0) {
		return NewPlane(w, h, -2, 2, -2, 2)
	}
	mx, my := 0.1*(xmax-xmin), 0.1*(ymax-ymin)
	return NewPlane(w, h, xmin-mx, xmax+mx, ymin-my, ymax+my)
}

// Pixel returns the sub-pixel for p and whether it lies inside the plane.
func (pl *Plane) Pixel(p secant.Point) (int, int, bool) {
	cw, ch := pl.Width*2, pl.Height*4
	fx := (p.Real - pl.XMin) / (pl.XMax - pl.XMin)
	fy := (pl.YMax - p.Imag) / (pl.YMax - pl.YMin)
	if !(fx >= 0 && fx <= 1 && fy >= 0 && fy <= 1) {
		return 0, 0, false
	}
	x := int(math.Round(fx * float64(cw-1)))
	y := int(math.Round(fy * float64(ch-1)))
	return x, y, true
}

func (pl *Plane) Plot(p secant.Point) {
	if x, y, ok := pl.Pixel(p); ok {
		pl.Set(x, y)
	}
}

// Line connects a and b when both are inside the plane.
func (pl *Plane) Line(a, b secant.Point) {
	x0, y0, ok0 := pl.Pixel(a)
	x1, y1, ok1 := pl.Pixel(b)
	if ok0 && ok1 {
		pl.DrawLine(x0, y0, x1, y1)
	}
}

// Marker draws a 3x3 block centred on p.
func (pl *Plane) Marker(p secant.Point) {
	x, y, ok := pl.Pixel(p)
	if !ok {
		return
	}
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			pl.Set(x+dx, y+dy)
		}
	}
}

// Axes draws the real and imaginary axes when they are in view.
func (pl *Plane) Axes() {
	if pl.YMin <= 0 && pl.YMax >= 0 {
		pl.Line(secant.Point{Real: pl.XMin}, secant.Point{Real: pl.XMax})
	}
	if pl.XMin <= 0 && pl.XMax >= 0 {
		pl.Line(secant.Point{Imag: pl.YMin}, secant.Point{Imag: pl.YMax})
	}
}

// TrajectoryLimit drops reset jumps and sentinel points from plots.
const TrajectoryLimit = 1e6

// DrawTrajectory draws the path through pts[:n] and marks the last point.
func (pl *Plane) DrawTrajectory(pts []secant.Point, n int) {
	if n > len(pts) {
		n = len(pts)
	}
	for i := 1; i < n; i++ {
		pl.Line(pts[i-1], pts[i])
	}
	if n > 0 {
		pl.Marker(pts[n-1])
	}
}
