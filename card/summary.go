package card

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/hazyhaar/farmdash/currency"
	"github.com/hazyhaar/farmdash/summary"
)

const (
	flowerIcon = "images/resources/flower.webp"
	beeIcon    = "images/misc/bee.webp"
)

// Summary renders the card for a summary result. A nil formatter renders
// the estimated value as plain "~N Flower" text. It returns nil for a
// KindNone result: the card is hidden.
func (r *Renderer) Summary(res *summary.Result, f currency.Formatter) (*Card, error) {
	switch res.Kind {
	case summary.KindCropMachine:
		return r.CropMachine(res)
	case summary.KindAggregate:
	default:
		return nil, nil
	}

	acc := res.Summary
	stats := []stat{
		{Label: "Nós", Value: fmt.Sprint(acc.Nodes)},
		{Label: "Rendimento Total", Value: fixed2(acc.TotalYield)},
	}
	if acc.Nodes > 1 {
		stats = append(stats, stat{Label: "Rendimento Médio/Nó", Value: fixed2(acc.AverageYield())})
	}

	switch {
	case res.Tax.SellingDisabled:
		stats = append(stats, stat{Label: "Valor Total (Flower)", Icon: flowerIcon, Value: "Venda desativada", Class: "text-muted"})
	case acc.NetValue > 0:
		v := stat{Label: "Valor Total (Flower)", Icon: flowerIcon}
		if f != nil {
			v.HTML = template.HTML(f.GenerateHTML(acc.NetValue, "~"))
		} else {
			v.Value = "~" + fixed2(acc.NetValue) + " Flower"
		}
		stats = append(stats, v)
	}

	if acc.Fertilized > 0 {
		stats = append(stats, stat{Label: "Fertilizados", Value: fmt.Sprintf("%d de %d", acc.Fertilized, acc.Nodes)})
	}
	if acc.Pollinated > 0 {
		stats = append(stats, stat{Label: "Polinizados", Icon: beeIcon, Value: fmt.Sprintf("%d de %d", acc.Pollinated, acc.Nodes)})
	}
	if len(acc.BonusRewards) > 0 {
		parts := make([]string, 0, len(acc.BonusRewards))
		for _, item := range acc.RewardItems() {
			parts = append(parts, "+"+num(acc.BonusRewards[item])+" "+item)
		}
		stats = append(stats, stat{Label: "Recompensas Extra", Value: strings.Join(parts, ", ")})
	}

	body, err := r.execute("summary", struct {
		Stats    []stat
		Packages []pane
		Tax      string
	}{
		Stats:    stats,
		Packages: r.panes(res.Packages),
		Tax:      taxLine(res.Tax),
	})
	if err != nil {
		return nil, err
	}
	return &Card{
		ID:    r.newID(),
		Kind:  KindSummary,
		Title: "Resumo: " + acc.ResourceName,
		Icon:  acc.ResourceIcon,
		HTML:  body,
	}, nil
}

// CropMachine renders the paginated package view: one tab per package,
// only the first pane visible.
func (r *Renderer) CropMachine(res *summary.Result) (*Card, error) {
	if len(res.Packages) == 0 {
		return nil, nil
	}
	body, err := r.execute("crop_machine", struct{ Packages []pane }{r.panes(res.Packages)})
	if err != nil {
		return nil, err
	}
	first := res.Packages[0]
	return &Card{
		ID:    r.newID(),
		Kind:  KindCropMachine,
		Title: "Crop Machine: " + first.Crop,
		Icon:  first.IconPath,
		HTML:  body,
	}, nil
}

func (r *Renderer) panes(packs []summary.CropPackage) []pane {
	if len(packs) == 0 {
		return nil
	}
	out := make([]pane, 0, len(packs))
	for i, p := range packs {
		out = append(out, pane{
			Group:     r.packGroup(p),
			PackIndex: p.PackIndex,
			Number:    i + 1,
		})
	}
	return out
}

func taxLine(t summary.TaxInfo) string {
	if t.SellingDisabled {
		return t.IslandName + ": venda desativada"
	}
	line := fmt.Sprintf("Taxa %s: %s", t.IslandName, percent(t.OriginalRate))
	if t.VIPDiscount > 0 {
		line += fmt.Sprintf(" - %s VIP = %s", percent(t.VIPDiscount), percent(t.FinalRate))
	}
	return line
}
