// Package tile holds the geometry of a capture session and the tiling plan
// derived from it.
package tile

import (
	"errors"
	"fmt"
)

// DefaultViewportHeight is used when the worker cannot report
// window.innerHeight.
const DefaultViewportHeight = 600

// ErrInvalidGeometry is returned by Geometry.Validate.
var ErrInvalidGeometry = errors.New("tile: invalid page geometry")

// Geometry is measured once per session and never changes during it.
// Sizes are CSS pixels; Scale is the device pixel ratio of captured images.
type Geometry struct {
	TotalWidth     int     `json:"total_width"`
	TotalHeight    int     `json:"total_height"`
	ViewportHeight int     `json:"viewport_height"`
	Scale          float64 `json:"scale"`
}

// Validate checks that the geometry can be tiled.
func (g Geometry) Validate() error {
	if g.TotalHeight <= 0 || g.TotalWidth <= 0 {
		return fmt.Errorf("%w: page %dx%d", ErrInvalidGeometry, g.TotalWidth, g.TotalHeight)
	}
	if g.ViewportHeight <= 0 {
		return fmt.Errorf("%w: viewport height %d", ErrInvalidGeometry, g.ViewportHeight)
	}
	return nil
}

// PixelScale returns Scale, or 1 when unset.
func (g Geometry) PixelScale() float64 {
	if g.Scale <= 0 {
		return 1
	}
	return g.Scale
}

// Tile is one captured viewport. YOffset is where the tile belongs on the
// composite; ScrollY is the scroll position the page actually reached when
// the browser clamped the last scroll (equal to YOffset otherwise).
type Tile struct {
	YOffset int    `json:"y_offset"`
	ScrollY int    `json:"scroll_y"`
	Image   string `json:"image"`
}

// Offsets returns the y offsets that cover [0, totalHeight) with step
// viewportHeight: 0, v, 2v, ... Its length is ceil(totalHeight/viewportHeight).
func Offsets(totalHeight, viewportHeight int) []int {
	if totalHeight <= 0 || viewportHeight <= 0 {
		return nil
	}
	out := make([]int, 0, (totalHeight+viewportHeight-1)/viewportHeight)
	for y := 0; y < totalHeight; y += viewportHeight {
		out = append(out, y)
	}
	return out
}

// DrawHeight is the number of rows a tile at yOffset contributes:
// ViewportHeight, clipped to TotalHeight-yOffset for the last tile.
func DrawHeight(g Geometry, yOffset int) int {
	return max(0, min(g.ViewportHeight, g.TotalHeight-yOffset))
}
