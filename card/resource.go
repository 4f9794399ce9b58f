package card

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/farmdash/farm"
	"github.com/hazyhaar/farmdash/summary"
)

// ResourceInfo renders the single-node card shown when a map element is
// clicked. now drives every countdown.
func (r *Renderer) ResourceInfo(info *farm.Info, now time.Time) (*Card, error) {
	if info == nil || info.Analysis == nil {
		return nil, errors.New("card: resource info has no analysis")
	}
	an := info.Analysis
	c := &Card{ID: r.newID(), Kind: KindResource, Title: an.DisplayName(), Icon: info.IconPath()}

	var stats []stat
	if an.StateName != "" {
		stats = append(stats, stat{Label: "Estado", Value: an.StateName})
	}
	if an.ReadyAtMs != 0 && an.StateName != "Pronta" && an.StateName != "Pronto" {
		stats = append(stats, stat{Label: "Pronto em", Value: r.dateTime(int64(an.ReadyAtMs))})
	}
	if an.CrimstoneResetAtMs != 0 {
		if left := TimeRemaining(an.CrimstoneResetAtMs, now); left != "Pronta" {
			remaining := an.CrimstoneResetAtMs.Time().Sub(now)
			stats = append(stats, stat{Label: "Reinício em", Value: left, Class: resetClass(remaining)})
		}
	}
	switch {
	case an.Calculations != nil && an.Calculations.Yield.FinalDeterministic != nil:
		stats = append(stats, stat{Label: "Rendimento Previsto", Value: fixed2(*an.Calculations.Yield.FinalDeterministic)})
	case an.BaseAmount != nil:
		stats = append(stats, stat{Label: "Rendimento Previsto", Value: fixed2(*an.BaseAmount)})
	}
	if an.MinesLeft != nil {
		stats = append(stats, stat{Label: "Minas Restantes", Value: fmt.Sprint(*an.MinesLeft)})
	}
	if an.HarvestsLeft != nil {
		stats = append(stats, stat{Label: "Colheitas Restantes", Value: fmt.Sprint(*an.HarvestsLeft)})
	}
	if an.BeeSwarm {
		stats = append(stats, stat{Label: "Beeswarm", Value: "Sim", Class: "text-success"})
	}
	if spawn := nextSpawn(an); spawn != 0 {
		stats = append(stats, stat{Label: "Próximo Spawn", Value: r.dateTime(int64(spawn))})
	}

	sections := []buffSection{rewardSection(an.BonusReward)}
	if calc := an.Calculations; calc != nil {
		sections = append(sections,
			section(titleYieldBuffs, calc.Yield.AppliedBuffs),
			section(titleTimeBuffs, calc.TimeBuffs()),
		)
	}
	sections = append(sections, section(titleYieldBuffs, an.AppliedBoosts))

	var groups []group
	var empty string
	switch info.Type {
	case farm.TypeGreenhouse:
		pots := an.SortedPots()
		c.Title = containerTitle("Greenhouse", potPlants(pots))
		if len(pots) == 0 {
			empty = "Nenhum vaso com plantas."
		}
		groups = potGroups(pots, now)
	case farm.TypeCropMachine:
		crops := make([]string, 0, len(an.Queue))
		for i, p := range an.Queue {
			crops = append(crops, p.Crop)
			groups = append(groups, r.packGroup(summary.PackageOf(p, i)))
		}
		c.Title = containerTitle("Crop Machine", crops)
		if len(an.Queue) == 0 {
			empty = "Nenhum pacote na fila."
		}
	}

	body, err := r.execute("resource", struct {
		Stats    []stat
		Sections []buffSection
		Groups   []group
		Empty    string
	}{stats, sections, groups, empty})
	if err != nil {
		return nil, err
	}
	c.HTML = body
	return c, nil
}

func resetClass(remaining time.Duration) string {
	switch {
	case remaining < 10*time.Minute:
		return "text-danger fw-bold"
	case remaining < time.Hour:
		return "text-warning fw-bold"
	case remaining < 12*time.Hour:
		return "text-warning"
	}
	return ""
}

func nextSpawn(an *farm.Analysis) farm.Millis {
	if an.Summary == nil {
		return 0
	}
	switch an.Name {
	case "Wild Mushroom":
		return an.Summary.NextWildSpawnAt
	case "Magic Mushroom":
		return an.Summary.NextMagicSpawnAt
	}
	return 0
}

// containerTitle names a building after what it holds.
func containerTitle(building string, plants []string) string {
	seen := map[string]bool{}
	var unique []string
	for _, p := range plants {
		if p != "" && !seen[p] {
			seen[p] = true
			unique = append(unique, p)
		}
	}
	switch len(unique) {
	case 0:
		return building + " (Vazia)"
	case 1:
		return building + " (" + unique[0] + ")"
	}
	return fmt.Sprintf("%s (%d plantas diferentes)", building, len(unique))
}

func potPlants(pots []farm.Pot) []string {
	out := make([]string, 0, len(pots))
	for _, p := range pots {
		out = append(out, p.PlantName)
	}
	return out
}

// potGroups folds pots sharing plant, state, yield and remaining time into
// one entry, in first-seen order.
func potGroups(pots []farm.Pot, now time.Time) []group {
	var keys []string
	byKey := map[string][]farm.Pot{}
	for _, p := range pots {
		k := strings.Join([]string{p.PlantName, p.StateName, fixed2(p.FinalYield()), TimeRemaining(p.ReadyAtMs, now)}, "|")
		if _, ok := byKey[k]; !ok {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], p)
	}

	groups := make([]group, 0, len(keys))
	for _, k := range keys {
		members := byKey[k]
		first := members[0]
		ids := make([]string, 0, len(members))
		total := 0.0
		for _, p := range members {
			ids = append(ids, "#"+string(p.ID))
			total += p.FinalYield()
		}

		g := group{
			Icon:    first.IconPath,
			Heading: fmt.Sprintf("%s (Vaso %s)", first.PlantName, strings.Join(ids, ", ")),
		}
		if first.StateName != "" {
			g.Stats = append(g.Stats, stat{Label: "Estado", Value: first.StateName})
		}
		g.Stats = append(g.Stats, stat{Label: "Rendimento/Vaso", Value: fixed2(first.FinalYield())})
		if first.StateName != "Pronta" {
			g.Stats = append(g.Stats, stat{Label: "Pronta em", Value: TimeRemaining(first.ReadyAtMs, now)})
		}
		if len(members) > 1 {
			g.Stats = append(g.Stats, stat{Label: "Rendimento Total (Grupo)", Value: fixed2(total)})
		}
		if calc := first.Calculations; calc != nil {
			g.YieldBuffs = section(titleYieldBuffs, calc.Yield.AppliedBuffs)
			g.TimeBuffs = section(titleTimeBuffs, calc.Growth.AppliedBuffs)
			g.BuffCount = len(calc.Yield.AppliedBuffs) + len(calc.Growth.AppliedBuffs)
		}
		groups = append(groups, g)
	}
	return groups
}

// packGroup renders one crop machine package. Its buffs are split into
// yield and time sections by buff type.
func (r *Renderer) packGroup(p summary.CropPackage) group {
	state := "Processando"
	if p.Ready {
		state = "Pronto"
	}
	g := group{
		Icon:    p.IconPath,
		Heading: p.Crop,
		Stats: []stat{
			{Label: "Estado", Value: state},
			{Label: "Sementes", Value: fmt.Sprint(p.Seeds)},
			{Label: "Rendimento Previsto", Value: fixed2(p.YieldFinal)},
		},
	}
	if p.AverageYieldPerSeed > 0 {
		g.Stats = append(g.Stats, stat{Label: "Rendimento/Semente", Value: fixed2(p.AverageYieldPerSeed)})
	}
	if p.OilCost > 0 {
		g.Stats = append(g.Stats, stat{Label: "Custo de Óleo", Value: fmt.Sprintf("%.0f", p.OilCost)})
	}
	if !p.Ready && p.ReadyAt != 0 {
		g.Stats = append(g.Stats, stat{Label: "Pronto em", Value: r.dateTime(int64(p.ReadyAt))})
	}

	var yield, timed []farm.Buff
	for _, b := range p.AppliedBuffs {
		switch {
		case b.IsYield():
			yield = append(yield, b)
		case b.IsTime():
			timed = append(timed, b)
		}
	}
	if len(yield) > 0 || len(timed) > 0 {
		g.BuffCount = len(p.AppliedBuffs)
		g.YieldBuffs = section(titleYieldBuffs, yield)
		g.TimeBuffs = section(titleTimeBuffs, timed)
	}
	return g
}
