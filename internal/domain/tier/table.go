package tier

import (
	"fmt"
	"sort"

	"github.com/okian/scholardash/internal/domain/model"
	"github.com/volatiletech/null/v8"
)

// Standard threshold set names.
const (
	SetSurvey        = "survey"
	SetAttendance    = "attendance"
	SetParticipation = "participation"
	SetEngagement    = "engagement"
)

// Default institutional bounds, in percent.
const (
	defaultSurveyTier1Min = 80
	defaultEngageTier1Min = 75
	defaultTier2Min       = 50
)

// Option applies a configuration option to the Table.
type Option func(*Table)

// WithThresholds adds or replaces a standard three-band set.
func WithThresholds(name, label string, tier1Min, tier2Min float64) Option {
	return func(t *Table) {
		if name == "" || tier1Min <= tier2Min {
			return
		}
		t.sets[name] = NewThresholds(name, label, tier1Min, tier2Min)
	}
}

// WithSet adds or replaces a fully specified threshold set.
func WithSet(th Thresholds) Option {
	return func(t *Table) {
		if th.Name != "" && len(th.Bands) > 0 {
			t.sets[th.Name] = th
		}
	}
}

// Table is the named configuration of threshold sets. New metrics reuse the
// classifier by registering a set instead of hardcoding bounds.
type Table struct {
	sets map[string]Thresholds
}

// NewTable creates a table holding the institutional defaults, then applies opts.
func NewTable(opts ...Option) *Table {
	t := &Table{sets: make(map[string]Thresholds)}
	defaults := []Option{
		WithThresholds(SetSurvey, "Responsiveness to Surveys", defaultSurveyTier1Min, defaultTier2Min),
		WithThresholds(SetAttendance, "Attendance in Sessions", defaultSurveyTier1Min, defaultTier2Min),
		WithThresholds(SetParticipation, "Class Participation", defaultEngageTier1Min, defaultTier2Min),
		WithThresholds(SetEngagement, "Engagement", defaultEngageTier1Min, defaultTier2Min),
	}
	for _, opt := range append(defaults, opts...) {
		opt(t)
	}
	return t
}

// Lookup returns the named set.
func (t *Table) Lookup(name string) (Thresholds, error) {
	th, ok := t.sets[name]
	if !ok {
		return Thresholds{}, fmt.Errorf("threshold set %q: %w", name, model.ErrMissingInput)
	}
	return th, nil
}

// Classify classifies value against the named set.
func (t *Table) Classify(name string, value null.Float64) (Tier, error) {
	th, err := t.Lookup(name)
	if err != nil {
		return Undefined, err
	}
	return Classify(value, th), nil
}

// Names returns the registered set names in lexical order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.sets))
	for name := range t.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition is one tier of the rendered threshold table.
type Definition struct {
	Tier     string     `json:"tier"`
	Criteria []Criteria `json:"criteria"`
}

// Criteria is the rule a set applies for one tier.
type Criteria struct {
	Set   string `json:"set"`
	Label string `json:"label"`
	Rule  string `json:"rule"`
}

// Definitions renders the table grouped by tier, best tier first.
func (t *Table) Definitions() []Definition {
	out := make([]Definition, 0, len(All))
	for _, tr := range All {
		d := Definition{Tier: tr.String()}
		for _, name := range t.Names() {
			th := t.sets[name]
			if rule := th.Rule(tr); rule != "" {
				d.Criteria = append(d.Criteria, Criteria{Set: name, Label: th.Label, Rule: rule})
			}
		}
		out = append(out, d)
	}
	return out
}
