package stats

import (
	"sort"

	"github.com/volatiletech/null/v8"
)

// Pair is one (key, value) observation for grouped statistics.
type Pair struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GroupStat is the mean outcome of one discrete group.
type GroupStat struct {
	Key      float64      `json:"key"`
	N        int          `json:"n"`
	Mean     null.Float64 `json:"mean"`
	Eligible bool         `json:"eligible"`
}

// Grouped is a grouped-mean table with its best eligible group.
type Grouped struct {
	MinSize int         `json:"min_size"`
	Groups  []GroupStat `json:"groups"`
	Best    *GroupStat  `json:"best,omitempty"`
}

// GroupBest groups Y by X, filters out groups smaller than minSize and only
// then picks the group with the highest mean. Ties go to the smaller key.
// Best is nil when no group is large enough.
func GroupBest(pairs []Pair, minSize int) Grouped {
	byKey := make(map[float64][]float64)
	for _, p := range pairs {
		byKey[p.X] = append(byKey[p.X], p.Y)
	}
	keys := make([]float64, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	g := Grouped{MinSize: minSize, Groups: make([]GroupStat, 0, len(keys))}
	bestIdx := -1
	for _, k := range keys {
		ys := byKey[k]
		gs := GroupStat{Key: k, N: len(ys), Mean: Mean(ys), Eligible: len(ys) >= minSize}
		g.Groups = append(g.Groups, gs)
		if !gs.Eligible {
			continue
		}
		if bestIdx < 0 || gs.Mean.Float64 > g.Groups[bestIdx].Mean.Float64 {
			bestIdx = len(g.Groups) - 1
		}
	}
	if bestIdx >= 0 {
		best := g.Groups[bestIdx]
		g.Best = &best
	}
	return g
}

// LabelStat summarizes Y per categorical label.
type LabelStat struct {
	Label string       `json:"label"`
	N     int          `json:"n"`
	Mean  null.Float64 `json:"mean"`
	Std   null.Float64 `json:"std"`
}

// ByLabel summarizes values per label in the given label order. Labels with
// no values are reported with N=0 and null statistics.
func ByLabel(order []string, values map[string][]float64) []LabelStat {
	out := make([]LabelStat, 0, len(order))
	for _, label := range order {
		d := Describe(values[label])
		out = append(out, LabelStat{Label: label, N: d.N, Mean: d.Mean, Std: d.Std})
	}
	return out
}
