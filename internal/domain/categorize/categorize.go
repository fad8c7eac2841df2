// Package categorize evaluates an ordered list of named rules against a
// population and reports the members of each rule.
//
// Rules are independent: every rule sees the full population, so a row may
// be flagged by zero, one or several rules.
package categorize

import "github.com/okian/scholardash/internal/domain/cohort"

// Rule is one named category.
type Rule[T any] struct {
	Name        string
	Description string
	Predicate   cohort.Predicate[T]
}

// Category is the result of one rule.
type Category[T any] struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Count       int    `json:"count"`
	Excluded    int    `json:"excluded"`
	Members     []T    `json:"members"`
}

// Report holds every category in rule order.
type Report[T any, K comparable] struct {
	Population   int           `json:"population"`
	Categories   []Category[T] `json:"categories"`
	TotalFlagged int           `json:"total_flagged"`
	Unflagged    int           `json:"unflagged"`
	Memberships  map[K]int     `json:"-"`
}

// Evaluate applies each rule to the whole population. TotalFlagged counts
// memberships, so it exceeds the population when rules overlap.
func Evaluate[T any, K comparable](population []T, rules []Rule[T], key func(T) K) Report[T, K] {
	r := Report[T, K]{
		Population:  len(population),
		Categories:  make([]Category[T], 0, len(rules)),
		Memberships: make(map[K]int, len(population)),
	}
	for _, row := range population {
		r.Memberships[key(row)] = 0
	}
	for _, rule := range rules {
		c := cohort.Select(rule.Name, population, rule.Predicate)
		r.Categories = append(r.Categories, Category[T]{
			Name:        rule.Name,
			Description: rule.Description,
			Count:       c.Size(),
			Excluded:    c.Excluded,
			Members:     c.Members,
		})
		r.TotalFlagged += c.Size()
		for _, m := range c.Members {
			r.Memberships[key(m)]++
		}
	}
	for _, n := range r.Memberships {
		if n == 0 {
			r.Unflagged++
		}
	}
	return r
}
