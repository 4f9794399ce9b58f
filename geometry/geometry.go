// Package geometry places floating cards next to anchor regions on screen.
//
// All coordinates are viewport pixels (the space getBoundingClientRect
// reports in). Nothing here touches a DOM: adapters measure the card and the
// anchors, call PositionCard or PositionCardAroundGroup, then apply the
// returned Placement.
//
//	p := geometry.PositionCard(cardSize, anchorRect, viewport)
//	el.style.left, el.style.top = p.Left, p.Top
package geometry

import "math"

// Margin is the gap kept between a card and its anchor, and between a card
// and the viewport edges.
const Margin = 15.0

// Rect is an axis-aligned rectangle in viewport coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// RectAt builds a Rect from its top-left corner and dimensions.
func RectAt(left, top, width, height float64) Rect {
	return Rect{Left: left, Top: top, Right: left + width, Bottom: top + height}
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Overlaps reports whether r and o intersect. Touching edges count as an
// overlap: only a strict gap on some side separates two rects.
func (r Rect) Overlaps(o Rect) bool {
	return !(r.Right < o.Left ||
		r.Left > o.Right ||
		r.Bottom < o.Top ||
		r.Top > o.Bottom)
}

// Union returns the smallest Rect containing every rect. The zero Rect is
// returned for an empty slice.
func Union(rects ...Rect) Rect {
	if len(rects) == 0 {
		return Rect{}
	}
	u := Rect{
		Left:   math.Inf(1),
		Top:    math.Inf(1),
		Right:  math.Inf(-1),
		Bottom: math.Inf(-1),
	}
	for _, r := range rects {
		u.Left = math.Min(u.Left, r.Left)
		u.Top = math.Min(u.Top, r.Top)
		u.Right = math.Max(u.Right, r.Right)
		u.Bottom = math.Max(u.Bottom, r.Bottom)
	}
	return u
}

// Size is the measured box of a card.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Viewport is the visible window area.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Placement is the computed card position. Visible is false when the card
// must be hidden instead of shown.
type Placement struct {
	Left    float64 `json:"left"`
	Top     float64 `json:"top"`
	Visible bool    `json:"visible"`
}

// Rect returns the rectangle the card occupies at this placement.
func (p Placement) Rect(card Size) Rect {
	return RectAt(p.Left, p.Top, card.Width, card.Height)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
