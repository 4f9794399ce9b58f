package card

import (
	"fmt"
	"html/template"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/farmdash/farm"
)

type stat struct {
	Label string
	Icon  string
	Value string
	Class string
	HTML  template.HTML
}

type buffView struct {
	Tag        string
	SourceType string
	Item       string
	Count      string
	Value      string
	Class      string
}

type buffSection struct {
	Title string
	Buffs []buffView
}

type group struct {
	Icon       string
	Heading    string
	Stats      []stat
	BuffCount  int
	YieldBuffs buffSection
	TimeBuffs  buffSection
}

type pane struct {
	Group     group
	PackIndex int
	Number    int
}

const (
	titleYieldBuffs = "Bônus de Rendimento"
	titleTimeBuffs  = "Bônus de Tempo"
	titleRewards    = "Recompensas Bônus"
)

var sourceTags = map[string]string{
	"skill":         "(Skill)",
	"skill_legacy":  "(Skill Legacy)",
	"collectible":   "(Collectible)",
	"wearable":      "(Wearable)",
	"bud":           "(Bud)",
	"game_mechanic": "(Nativo)",
	"fertiliser":    "(Fertilizante)",
	"tool":          "(Ferramenta)",
}

func buffViews(buffs []farm.Buff) []buffView {
	out := make([]buffView, 0, len(buffs))
	for _, b := range buffs {
		v := buffView{
			Tag:        sourceTags[b.SourceType],
			SourceType: b.SourceType,
			Item:       b.SourceItem,
			Value:      b.ValueText(),
		}
		if b.Count > 1 {
			v.Count = fmt.Sprintf(" (x%d)", b.Count)
		}
		if n := b.Value.Number; n != nil {
			if *n > 0 {
				v.Class = "text-success"
			} else {
				v.Class = "text-danger"
			}
		}
		out = append(out, v)
	}
	return out
}

func section(title string, buffs []farm.Buff) buffSection {
	return buffSection{Title: title, Buffs: buffViews(buffs)}
}

func rewardSection(rewards map[string]float64) buffSection {
	s := buffSection{Title: titleRewards}
	for _, item := range sortedKeys(rewards) {
		s.Buffs = append(s.Buffs, buffView{
			Item:  item,
			Value: "+" + num(rewards[item]),
			Class: "text-success",
		})
	}
	return s
}

// TimeRemaining formats the time left until ts as "1d 2h 3m". Past
// timestamps, and anything under a minute, read "Pronta". A zero timestamp
// reads "N/A".
func TimeRemaining(ts farm.Millis, now time.Time) string {
	if ts == 0 {
		return "N/A"
	}
	secs := ts.Time().Sub(now).Seconds()
	if secs <= 0 {
		return "Pronta"
	}
	days := int(secs / 86400)
	hours := int(math.Mod(secs, 86400) / 3600)
	minutes := int(math.Mod(secs, 3600) / 60)

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if len(parts) == 0 {
		return "Pronta"
	}
	return strings.Join(parts, " ")
}

// fixed2 formats with two decimals.
func fixed2(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// num formats without trailing zeros.
func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// percent formats a rate as a percentage, at most two decimals.
func percent(rate float64) string {
	return num(math.Round(rate*10000)/100) + "%"
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
