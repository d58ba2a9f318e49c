package viz

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/san-kum/secantlab/internal/secant"
)

// TrajectorySVG draws the iterates as a path on the complex plane, with
// the seeds marked in the theme's warning color and the final point in
// its success or error color. Points beyond TrajectoryLimit are skipped.
func TrajectorySVG(res *secant.RunResult, width, height int, t Theme) string {
	traj := res.Trace.Trajectory
	if len(traj) < 2 {
		return ""
	}

	pl := FitPlane(1, 1, traj, TrajectoryLimit)
	rangeX, rangeY := pl.XMax-pl.XMin, pl.YMax-pl.YMin
	xy := func(p secant.Point) (float64, float64) {
		x := (p.Real - pl.XMin) / rangeX * float64(width)
		y := float64(height) - (p.Imag-pl.YMin)/rangeY*float64(height)
		return x, y
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	if pl.YMin <= 0 && pl.YMax >= 0 {
		_, y := xy(secant.Point{})
		fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-width="0.5"/>
`, y, width, y, t.Muted)
	}
	if pl.XMin <= 0 && pl.XMax >= 0 {
		x, _ := xy(secant.Point{})
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="0" x2="%.1f" y2="%d" stroke="%s" stroke-width="0.5"/>
`, x, x, height, t.Muted)
	}

	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, t.Accent)
	move := true
	for _, p := range traj {
		if !p.IsValid() || p.Abs() > TrajectoryLimit {
			move = true
			continue
		}
		x, y := xy(p)
		if move {
			fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
			move = false
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")

	marker := func(p secant.Point, r float64, color string) {
		if !p.IsValid() || p.Abs() > TrajectoryLimit {
			return
		}
		x, y := xy(p)
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, x, y, r, color)
	}
	marker(traj[0], 3, string(t.Warning))
	marker(traj[1], 3, string(t.Warning))
	end := t.Error
	if res.Converged {
		end = t.Success
	}
	marker(traj[len(traj)-1], 4, string(end))

	sb.WriteString("</svg>\n")
	return sb.String()
}

// WriteSVGFile writes the trajectory SVG to path, "-" meaning stdout.
func WriteSVGFile(path string, res *secant.RunResult, width, height int, t Theme) error {
	svg := TrajectorySVG(res, width, height, t)
	if svg == "" {
		return fmt.Errorf("run %s has no trajectory to draw", res.ID)
	}
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	_, err := io.WriteString(w, svg)
	return err
}
