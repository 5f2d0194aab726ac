package practice

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Family is a group of modes sharing an item shape.
type Family string

const (
	FamilyQuiz     Family = "quiz"
	FamilySentence Family = "sentence"
)

// Mode identifies one practice mode, e.g. "grammar" or "challenge".
type Mode string

// PoolItem is one literal fallback entry. Quiz pools carry Question and
// Answer, sentence pools carry Sentence.
type PoolItem struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
	Sentence string `yaml:"sentence"`
}

// FamilySettings holds the generation parameters shared by a family.
type FamilySettings struct {
	DefaultMode Mode    `yaml:"default_mode"`
	ItemNoun    string  `yaml:"item_noun"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// ModeSettings is the static configuration of one mode.
type ModeSettings struct {
	Family    Family              `yaml:"family"`
	Rules     []Rule              `yaml:"curve"`
	Final     Tier                `yaml:"final"`
	Templates map[Tier]string     `yaml:"templates"`
	Fallback  map[Tier][]PoolItem `yaml:"fallback"`
}

func (m *ModeSettings) Curve() Curve {
	return Curve{Rules: m.Rules, Final: m.Final}
}

func (m *ModeSettings) has(tier Tier) bool {
	return strings.TrimSpace(m.Templates[tier]) != "" && len(m.Fallback[tier]) > 0
}

// Catalog is the read-only table of curves, templates and fallback pools.
// It is safe for concurrent use once loaded.
type Catalog struct {
	DefaultMode Mode                       `yaml:"default_mode"`
	Families    map[Family]*FamilySettings `yaml:"families"`
	Modes       map[Mode]*ModeSettings     `yaml:"modes"`
}

//go:embed catalog.yaml
var embeddedCatalog []byte

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return ParseCatalog(embeddedCatalog)
})

// LoadCatalog returns the embedded catalog, parsing and validating it on
// first use.
func LoadCatalog() (*Catalog, error) {
	return loadDefault()
}

// Default is LoadCatalog for callers that cannot handle an error. The
// embedded catalog is checked by the package tests.
func Default() *Catalog {
	c, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("practice: embedded catalog: %v", err))
	}
	return c
}

// ParseCatalog decodes a YAML catalog and checks that every (mode, tier)
// pair a curve can produce has a template and a non-empty fallback pool.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Modes) == 0 {
		return fmt.Errorf("no modes defined")
	}

	for _, name := range c.ModeNames() {
		m := c.Modes[name]
		fam, ok := c.Families[m.Family]
		if !ok {
			return fmt.Errorf("mode %s: unknown family %q", name, m.Family)
		}
		if err := m.Curve().validate(); err != nil {
			return fmt.Errorf("mode %s: %w", name, err)
		}
		for _, tier := range m.Curve().Reachable() {
			if !m.has(tier) {
				return fmt.Errorf("mode %s: tier %s is reachable but has no template or fallback pool", name, tier)
			}
		}
		for tier, pool := range m.Fallback {
			for i, item := range pool {
				if err := item.validate(m.Family); err != nil {
					return fmt.Errorf("mode %s: fallback %s[%d]: %w", name, tier, i, err)
				}
			}
		}
		if fam.MaxTokens <= 0 {
			return fmt.Errorf("family %s: max_tokens must be positive", m.Family)
		}
	}

	for name, fam := range c.Families {
		d, ok := c.Modes[fam.DefaultMode]
		if !ok || d.Family != name || !d.has(TierBasic) {
			return fmt.Errorf("family %s: default mode %q must be a %s mode with a basic tier", name, fam.DefaultMode, name)
		}
	}

	d, ok := c.Modes[c.DefaultMode]
	if !ok || !d.has(TierBasic) {
		return fmt.Errorf("default mode %q must exist with a basic tier", c.DefaultMode)
	}
	return nil
}

func (p PoolItem) validate(f Family) error {
	switch f {
	case FamilyQuiz:
		if strings.TrimSpace(p.Question) == "" || strings.TrimSpace(p.Answer) == "" {
			return fmt.Errorf("quiz item needs question and answer")
		}
	case FamilySentence:
		if len(strings.Fields(p.Sentence)) == 0 {
			return fmt.Errorf("sentence item needs a sentence")
		}
	}
	return nil
}

// ModeNames returns the configured modes in sorted order.
func (c *Catalog) ModeNames() []Mode {
	names := make([]Mode, 0, len(c.Modes))
	for name := range c.Modes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// ModesIn returns the sorted modes belonging to a family.
func (c *Catalog) ModesIn(f Family) []Mode {
	var out []Mode
	for _, name := range c.ModeNames() {
		if c.Modes[name].Family == f {
			out = append(out, name)
		}
	}
	return out
}

// ModeOrDefault returns mode if it belongs to family f, otherwise the
// family's default mode.
func (c *Catalog) ModeOrDefault(f Family, mode Mode) Mode {
	if m, ok := c.Modes[mode]; ok && m.Family == f {
		return mode
	}
	if fam, ok := c.Families[f]; ok {
		return fam.DefaultMode
	}
	return c.DefaultMode
}

func (c *Catalog) SelectTier(mode Mode, round int) Tier {
	m, ok := c.Modes[mode]
	if !ok {
		return TierBasic
	}
	return m.Curve().TierFor(round)
}

// TemplateFor returns the prompt template for (mode, tier). Pairs without a
// template get the default mode's basic template.
func (c *Catalog) TemplateFor(mode Mode, tier Tier) string {
	if m, ok := c.Modes[mode]; ok {
		if t := m.Templates[tier]; strings.TrimSpace(t) != "" {
			return t
		}
	}
	return c.Modes[c.DefaultMode].Templates[TierBasic]
}

// resolve picks the (mode, tier) whose template and pool a generation
// request will use. An unknown mode resolves to the default mode at basic.
// A known mode without that tier resolves to its family's default mode at
// basic so the item shape stays the same.
func (c *Catalog) resolve(mode Mode, tier Tier) (Mode, Tier, *ModeSettings) {
	m, ok := c.Modes[mode]
	if !ok {
		return c.DefaultMode, TierBasic, c.Modes[c.DefaultMode]
	}
	if m.has(tier) {
		return mode, tier, m
	}
	def := c.Families[m.Family].DefaultMode
	return def, TierBasic, c.Modes[def]
}

// TemplateFor looks up a template in the embedded catalog.
func TemplateFor(mode Mode, tier Tier) string {
	return Default().TemplateFor(mode, tier)
}
