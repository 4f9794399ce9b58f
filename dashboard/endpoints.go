package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/hazyhaar/farmdash/geometry"
	"github.com/hazyhaar/farmdash/kit"
)

type summaryReq struct {
	FilterID string         `json:"filter_id"`
	Trigger  *geometry.Rect `json:"trigger,omitempty"`
	Markdown bool           `json:"markdown,omitempty"`
}

type positionReq struct {
	Card     geometry.Size     `json:"card"`
	Anchor   geometry.Rect     `json:"anchor"`
	Viewport geometry.Viewport `json:"viewport"`
}

type positionGroupReq struct {
	Card     geometry.Size     `json:"card"`
	Anchors  []geometry.Rect   `json:"anchors"`
	Viewport geometry.Viewport `json:"viewport"`
}

type resourceReq struct {
	Index    int  `json:"index"`
	Markdown bool `json:"markdown,omitempty"`
}

// cardResp is a CardView with its optional Markdown rendition.
type cardResp struct {
	*CardView
	Markdown string `json:"markdown,omitempty"`
}

// endpoints are the operations shared by HTTP and MCP, each wrapped in
// call logging.
type endpoints struct {
	summary       kit.Endpoint
	position      kit.Endpoint
	positionGroup kit.Endpoint
	resource      kit.Endpoint
	tax           kit.Endpoint
	filters       kit.Endpoint
}

func (d *Dashboard) makeEndpoints() endpoints {
	wrap := func(op string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.Logging(d.logger, op))(ep)
	}
	return endpoints{
		summary: wrap("summary", func(ctx context.Context, req any) (any, error) {
			r := req.(*summaryReq)
			if r.FilterID == "" {
				return nil, errors.New("filter_id is required")
			}
			view, err := d.Summary(ctx, r.FilterID, r.Trigger)
			if err != nil {
				return nil, err
			}
			return d.withMarkdown(view, r.Markdown)
		}),
		position: wrap("position", func(_ context.Context, req any) (any, error) {
			r := req.(*positionReq)
			return d.Position(r.Card, r.Anchor, r.Viewport), nil
		}),
		positionGroup: wrap("position_group", func(_ context.Context, req any) (any, error) {
			r := req.(*positionGroupReq)
			return d.PositionGroup(r.Card, r.Anchors, r.Viewport), nil
		}),
		resource: wrap("resource", func(ctx context.Context, req any) (any, error) {
			r := req.(*resourceReq)
			view, err := d.ResourceCard(ctx, r.Index, time.Now())
			if err != nil {
				return nil, err
			}
			return d.withMarkdown(view, r.Markdown)
		}),
		tax: wrap("tax", func(context.Context, any) (any, error) {
			return d.Tax(), nil
		}),
		filters: wrap("filters", func(context.Context, any) (any, error) {
			return d.Filters(), nil
		}),
	}
}

func (d *Dashboard) withMarkdown(view *CardView, want bool) (*cardResp, error) {
	resp := &cardResp{CardView: view}
	if !want || view.Card == nil {
		return resp, nil
	}
	md, err := d.Markdown(view.Card)
	if err != nil {
		return nil, err
	}
	resp.Markdown = md
	return resp, nil
}
