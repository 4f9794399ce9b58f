package farm

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Buff is a named modifier applied to a base yield or duration, attributed
// to the item or skill that grants it.
type Buff struct {
	SourceItem string    `json:"source_item"`
	SourceType string    `json:"source_type,omitempty"`
	Operation  string    `json:"operation,omitempty"` // add | multiply | percentage
	Value      BuffValue `json:"value"`
	Count      int       `json:"count,omitempty"`
	Type       string    `json:"type,omitempty"` // YIELD, BONUS_YIELD_CHANCE, RECOVERY_TIME, GROWTH_TIME
}

// Buff categories used to split crop machine buffs into yield and time.
const (
	BuffYield            = "YIELD"
	BuffBonusYieldChance = "BONUS_YIELD_CHANCE"
	BuffRecoveryTime     = "RECOVERY_TIME"
	BuffGrowthTime       = "GROWTH_TIME"
)

// IsYield reports whether b changes how much is produced.
func (b Buff) IsYield() bool { return b.Type == BuffYield || b.Type == BuffBonusYieldChance }

// IsTime reports whether b changes how long production takes.
func (b Buff) IsTime() bool { return b.Type == BuffRecoveryTime || b.Type == BuffGrowthTime }

// ValueText formats the buff value according to its operation:
// "+0.20" for add, "x1.50" for multiply, "25%" for percentage.
func (b Buff) ValueText() string {
	if b.Value.Number == nil {
		return b.Value.Text
	}
	v := *b.Value.Number
	switch b.Operation {
	case "add":
		return fmt.Sprintf("+%.2f", v)
	case "multiply":
		return fmt.Sprintf("x%.2f", v)
	case "percentage":
		return fmt.Sprintf("%.0f%%", v*100)
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// BuffValue holds a buff value that is usually numeric but may be free text.
type BuffValue struct {
	Number *float64
	Text   string
}

// UnmarshalJSON accepts numbers, strings and anything else as text.
func (v *BuffValue) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		v.Number = &f
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v.Text = s
		return nil
	}
	v.Text = string(b)
	return nil
}

// MarshalJSON writes the number when present, else the text.
func (v BuffValue) MarshalJSON() ([]byte, error) {
	if v.Number != nil {
		return json.Marshal(*v.Number)
	}
	return json.Marshal(v.Text)
}

// Num returns a numeric BuffValue.
func Num(f float64) BuffValue { return BuffValue{Number: &f} }
