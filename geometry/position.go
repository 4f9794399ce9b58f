package geometry

// PositionCard places a card beside a single anchor.
//
// The card is top-aligned with the anchor, pushed up when it would run past
// the bottom of the viewport, and never placed above the top margin.
// Horizontally it goes to the right of the anchor, or to the left when the
// right side overflows. If the chosen side still covers the anchor once
// kept inside the viewport, the card is flipped to the other side once;
// there is no vertical fallback, so a card that fits on neither side may
// still overlap. The final left is clamped into
// [Margin, vp.Width-card.Width-Margin].
func PositionCard(card Size, anchor Rect, vp Viewport) Placement {
	top := anchor.Top
	if top+card.Height > vp.Height-Margin {
		top = vp.Height - card.Height - Margin
	}
	if top < Margin {
		top = Margin
	}

	left := anchor.Right + Margin
	if left+card.Width > vp.Width-Margin {
		left = anchor.Left - card.Width - Margin
	}

	// Both raw sides sit a margin away from the anchor, so only the
	// viewport clamp can push the card back onto it. Test where the card
	// would actually land.
	landed := clamp(left, Margin, vp.Width-card.Width-Margin)
	if RectAt(landed, top, card.Width, card.Height).Overlaps(anchor) {
		if left < anchor.Left {
			left = anchor.Right + Margin
		} else {
			left = anchor.Left - card.Width - Margin
		}
	}

	left = clamp(left, Margin, vp.Width-card.Width-Margin)
	return Placement{Left: left, Top: top, Visible: true}
}

// GroupCandidates returns the four placements tried around a group of
// anchors, in priority order: right, left, below, above the union box.
func GroupCandidates(card Size, anchors []Rect) []Placement {
	g := Union(anchors...)
	return []Placement{
		{Left: g.Right + Margin, Top: g.Top, Visible: true},
		{Left: g.Left - card.Width - Margin, Top: g.Top, Visible: true},
		{Left: g.Left, Top: g.Bottom + Margin, Visible: true},
		{Left: g.Left, Top: g.Top - card.Height - Margin, Visible: true},
	}
}

// PositionCardAroundGroup places a card so it covers none of the anchors.
//
// Candidates are generated from the union box of the anchors and kept
// inside the viewport before the overlap test: a raw candidate past the
// edge is pulled back by the clamp and may land on the group. Each is
// checked against every individual anchor, since scattered map cells rarely
// form a convex shape. The first candidate clear of all anchors wins; when
// none is, the right-of-group candidate is used.
// An empty anchor set yields a hidden placement.
func PositionCardAroundGroup(card Size, anchors []Rect, vp Viewport) Placement {
	if len(anchors) == 0 {
		return Placement{Visible: false}
	}

	candidates := GroupCandidates(card, anchors)
	for i, c := range candidates {
		candidates[i] = clampToViewport(c, card, vp)
	}
	for _, c := range candidates {
		if !overlapsAny(c.Rect(card), anchors) {
			return c
		}
	}
	return candidates[0]
}

func clampToViewport(p Placement, card Size, vp Viewport) Placement {
	return Placement{
		Left:    clamp(p.Left, Margin, vp.Width-card.Width-Margin),
		Top:     clamp(p.Top, Margin, vp.Height-card.Height-Margin),
		Visible: p.Visible,
	}
}

func overlapsAny(r Rect, anchors []Rect) bool {
	for _, a := range anchors {
		if r.Overlaps(a) {
			return true
		}
	}
	return false
}
