// Package tier maps a continuous metric to an ordinal tier through a named
// table of percentage thresholds.
package tier

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/scholardash/internal/domain/model"
	"github.com/volatiletech/null/v8"
)

// Tier is an ordinal rank. Lower is better; Undefined means unmeasurable.
type Tier int

const (
	Undefined Tier = iota
	Tier1
	Tier2
	Tier3
)

const labelPrefix = "Tier "

// All lists the defined tiers from best to worst.
var All = []Tier{Tier1, Tier2, Tier3} //nolint:gochecknoglobals // fixed ordinal set

// String renders the tier the way input tables spell it.
func (t Tier) String() string {
	if t == Undefined {
		return "undefined"
	}
	return labelPrefix + strconv.Itoa(int(t))
}

// Encode returns the numeric code used for plotting: Tier N -> N, undefined -> 0.
func (t Tier) Encode() int {
	return int(t)
}

// MarshalText renders the tier label in JSON.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Valid reports whether t is one of Tier1..Tier3.
func (t Tier) Valid() bool {
	return t >= Tier1 && t <= Tier3
}

// Better reports whether t ranks strictly above o. Undefined never ranks.
func (t Tier) Better(o Tier) bool {
	return t.Valid() && (!o.Valid() || t < o)
}

// Parse reads a label such as "Tier 2". Null, blank and "N/A" labels are
// Undefined; any other label that is not Tier 1..3 is a malformed row.
func Parse(label null.String) (Tier, error) {
	if !label.Valid {
		return Undefined, nil
	}
	s := strings.TrimSpace(label.String)
	switch strings.ToUpper(s) {
	case "", "N/A", "NA", "NAN", "NONE":
		return Undefined, nil
	}
	if !strings.HasPrefix(strings.ToUpper(s), strings.ToUpper(labelPrefix)) {
		return Undefined, fmt.Errorf("tier label %q: %w", s, model.ErrMalformedRow)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s[len(labelPrefix):]))
	if err != nil || !Tier(n).Valid() {
		return Undefined, fmt.Errorf("tier label %q: %w", s, model.ErrMalformedRow)
	}
	return Tier(n), nil
}

// Band is one rule of a threshold set: values >= Min map to Tier.
type Band struct {
	Min  float64 `json:"min"`
	Tier Tier    `json:"tier"`
}

// Thresholds is an ordered set of bands over one metric, highest bound first.
type Thresholds struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Bands []Band `json:"bands"`
}

// NewThresholds builds the standard three-band set: >= tier1Min is Tier 1,
// >= tier2Min is Tier 2, anything else is Tier 3.
func NewThresholds(name, label string, tier1Min, tier2Min float64) Thresholds {
	return NewBands(name, label,
		Band{Min: tier1Min, Tier: Tier1},
		Band{Min: tier2Min, Tier: Tier2},
		Band{Min: math.Inf(-1), Tier: Tier3},
	)
}

// NewBands builds a threshold set from arbitrary bands, sorted by bound.
func NewBands(name, label string, bands ...Band) Thresholds {
	sorted := make([]Band, len(bands))
	copy(sorted, bands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min > sorted[j].Min })
	return Thresholds{Name: name, Label: label, Bands: sorted}
}

// Classify returns the tier of the first band whose bound value meets.
// A null or NaN value is Undefined, never the worst tier.
func Classify(value null.Float64, th Thresholds) Tier {
	if !value.Valid || math.IsNaN(value.Float64) {
		return Undefined
	}
	for _, b := range th.Bands {
		if value.Float64 >= b.Min {
			return b.Tier
		}
	}
	return Undefined
}

// Rule describes one band as text, e.g. ">=80%" or "50% to <80%".
func (th Thresholds) Rule(t Tier) string {
	for i, b := range th.Bands {
		if b.Tier != t {
			continue
		}
		lower := math.IsInf(b.Min, -1)
		if i == 0 {
			if lower {
				return "any"
			}
			return fmt.Sprintf(">=%g%%", b.Min)
		}
		upper := th.Bands[i-1].Min
		if lower {
			return fmt.Sprintf("<%g%%", upper)
		}
		return fmt.Sprintf("%g%% to <%g%%", b.Min, upper)
	}
	return ""
}
