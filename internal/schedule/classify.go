package schedule

import (
	"strings"

	"classgrid/internal/model"
)

// Program maps a category to the discipline labels that belong to it.
type Program struct {
	Name        model.ProgramCategory `yaml:"name" json:"name"`
	Style       string                `yaml:"style" json:"style"`
	Disciplines []string              `yaml:"disciplines" json:"disciplines,omitempty"`
}

// DefaultPrograms is the stock category table, in declaration order.
var DefaultPrograms = []Program{
	{Name: "Adult BJJ", Style: "bjj", Disciplines: []string{"Adult Brazilian Jiu Jitsu"}},
	{Name: "Adult Striking", Style: "striking", Disciplines: []string{"Adult Striking"}},
	{Name: "Youth Classes", Style: "youth", Disciplines: []string{"Youth Jiu Jitsu", "Youth Striking"}},
	{Name: "MMA Classes", Style: "mma", Disciplines: []string{"Mixed Martial Arts"}},
	{Name: "Self-Defense", Style: "selfdefense", Disciplines: []string{"Self Defense"}},
}

// Classifier assigns program categories to discipline strings.
type Classifier struct {
	programs []Program
}

// NewClassifier copies the table so later edits by the caller have no effect.
// An empty table falls back to DefaultPrograms.
func NewClassifier(programs []Program) *Classifier {
	if len(programs) == 0 {
		programs = DefaultPrograms
	}
	table := make([]Program, 0, len(programs))
	for _, p := range programs {
		if p.Name == "" {
			continue
		}
		cp := p
		cp.Disciplines = append([]string(nil), p.Disciplines...)
		table = append(table, cp)
	}
	return &Classifier{programs: table}
}

// Programs returns the category table in declaration order.
func (c *Classifier) Programs() []Program {
	out := make([]Program, len(c.programs))
	copy(out, c.programs)
	return out
}

// Known reports whether name is a category in the table.
func (c *Classifier) Known(name model.ProgramCategory) bool {
	_, ok := c.lookup(name)
	return ok
}

// Classify returns the category for a discipline, or "" when nothing matches.
//
// Every category is tested and the last match in declaration order wins, so a
// later, more specific entry overrides an earlier one.
func (c *Classifier) Classify(discipline string) model.ProgramCategory {
	var match model.ProgramCategory
	for _, p := range c.programs {
		if matchesAny(discipline, p.Disciplines) {
			match = p.Name
		}
	}
	return match
}

// Matches reports whether discipline belongs to the named category,
// independently of which category Classify would pick.
func (c *Classifier) Matches(name model.ProgramCategory, discipline string) bool {
	p, ok := c.lookup(name)
	if !ok {
		return false
	}
	return matchesAny(discipline, p.Disciplines)
}

// Style returns the display tag for a category ("" if unknown).
func (c *Classifier) Style(name model.ProgramCategory) string {
	p, ok := c.lookup(name)
	if !ok {
		return ""
	}
	return p.Style
}

func (c *Classifier) lookup(name model.ProgramCategory) (Program, bool) {
	for _, p := range c.programs {
		if p.Name == name {
			return p, true
		}
	}
	return Program{}, false
}

// matchesAny is exact equality or case-sensitive containment against each
// non-empty pattern.
func matchesAny(discipline string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if discipline == pattern || strings.Contains(discipline, pattern) {
			return true
		}
	}
	return false
}
