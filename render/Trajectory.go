// Package render draws episode trajectories of the cat-and-laser
// environment to image files
package render

import (
	"fmt"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/spatial/r1"
)

// Trajectory accumulates cat and laser positions over an episode and
// renders the two paths over the play area
type Trajectory struct {
	xBounds r1.Interval
	zBounds r1.Interval
	width   int
	height  int

	cat   [][2]float64
	laser [][2]float64
}

// NewTrajectory creates and returns a new Trajectory renderer for a
// play area with the given bounds, rendered at the given pixel size
func NewTrajectory(xBounds, zBounds r1.Interval, width,
	height int) (*Trajectory, error) {
	if xBounds.Min >= xBounds.Max || zBounds.Min >= zBounds.Max {
		return nil, fmt.Errorf("newtrajectory: degenerate bounds "+
			"[%v, %v] x [%v, %v]", xBounds.Min, xBounds.Max, zBounds.Min,
			zBounds.Max)
	}
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("newtrajectory: invalid image size %vx%v",
			width, height)
	}

	return &Trajectory{
		xBounds: xBounds,
		zBounds: zBounds,
		width:   width,
		height:  height,
	}, nil
}

// Observe records the positions of the cat and the laser at one step
func (t *Trajectory) Observe(catX, catZ, laserX, laserZ float64) {
	t.cat = append(t.cat, [2]float64{catX, catZ})
	t.laser = append(t.laser, [2]float64{laserX, laserZ})
}

// Steps returns the number of observed steps
func (t *Trajectory) Steps() int {
	return len(t.cat)
}

// Save renders the recorded trajectories and writes them to a PNG
// file
func (t *Trajectory) Save(filename string) error {
	dc := gg.NewContext(t.width, t.height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Play area boundary
	topLeft := t.toPixel(t.xBounds.Min, t.zBounds.Max)
	bottomRight := t.toPixel(t.xBounds.Max, t.zBounds.Min)
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.SetLineWidth(2.0)
	dc.DrawRectangle(topLeft[0], topLeft[1], bottomRight[0]-topLeft[0],
		bottomRight[1]-topLeft[1])
	dc.Stroke()

	t.drawPath(dc, t.cat, 0.25, 0.25, 0.25)
	t.drawPath(dc, t.laser, 0.85, 0.1, 0.1)

	// Mark the final positions
	if n := len(t.cat); n > 0 {
		cat := t.toPixel(t.cat[n-1][0], t.cat[n-1][1])
		dc.SetRGB(0.25, 0.25, 0.25)
		dc.DrawCircle(cat[0], cat[1], 5.0)
		dc.Fill()

		laser := t.toPixel(t.laser[n-1][0], t.laser[n-1][1])
		dc.SetRGB(0.85, 0.1, 0.1)
		dc.DrawCircle(laser[0], laser[1], 5.0)
		dc.Fill()
	}

	return dc.SavePNG(filename)
}

// drawPath strokes one trajectory in the given colour
func (t *Trajectory) drawPath(dc *gg.Context, path [][2]float64,
	r, g, b float64) {
	if len(path) < 2 {
		return
	}

	dc.ClearPath()
	start := t.toPixel(path[0][0], path[0][1])
	dc.MoveTo(start[0], start[1])
	for i := 1; i < len(path); i++ {
		point := t.toPixel(path[i][0], path[i][1])
		dc.LineTo(point[0], point[1])
	}
	dc.SetRGB(r, g, b)
	dc.SetLineWidth(1.5)
	dc.Stroke()
}

// toPixel converts world coordinates to pixel coordinates, flipping
// the vertical axis so that larger z is drawn higher
func (t *Trajectory) toPixel(x, z float64) [2]float64 {
	px := (x - t.xBounds.Min) / (t.xBounds.Max - t.xBounds.Min) *
		float64(t.width)
	pz := (1 - (z-t.zBounds.Min)/(t.zBounds.Max-t.zBounds.Min)) *
		float64(t.height)
	return [2]float64{px, pz}
}
