package practice

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/speakup-coach/backend/internal/llm"
	"github.com/speakup-coach/backend/internal/logger"
)

// ErrGeneratorUnavailable means the model call itself failed, so there was
// no output to parse or fall back from.
var ErrGeneratorUnavailable = errors.New("practice: generator unavailable")

// Source records where an item came from.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Item is one generated exercise. Quiz items fill Question and Answer,
// sentence items fill Sentence and Scrambled.
type Item struct {
	Family     Family   `json:"family"`
	Mode       Mode     `json:"mode"`
	Difficulty Tier     `json:"difficulty"`
	Round      int      `json:"round"`
	Question   string   `json:"question,omitempty"`
	Answer     string   `json:"answer,omitempty"`
	Sentence   string   `json:"sentence,omitempty"`
	Scrambled  []string `json:"scrambled,omitempty"`
	Source     Source   `json:"source"`
}

// Rand is the randomness a Generator needs. *rand.Rand from math/rand/v2
// satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// maxExcluded is how many recent items the prompt asks the model to avoid.
const maxExcluded = 3

// Generator asks the model for exercises and falls back to the catalog
// pools when the output cannot be used.
type Generator struct {
	llm     llm.Client
	catalog *Catalog
	log     *logger.Logger
	rng     Rand
	timeout time.Duration
}

type Option func(*Generator)

// WithRand injects the randomness used for fallback picks and shuffles.
func WithRand(r Rand) Option {
	return func(g *Generator) { g.rng = r }
}

// WithTimeout bounds each model call. When this deadline fires the request
// is served from the fallback pool.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) { g.timeout = d }
}

func NewGenerator(client llm.Client, catalog *Catalog, log *logger.Logger, opts ...Option) *Generator {
	g := &Generator{
		llm:     client,
		catalog: catalog,
		log:     log,
		rng:     globalRand{},
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Catalog() *Catalog {
	return g.catalog
}

// Generate produces one exercise for (mode, tier). Malformed model output
// and the generator's own timeout both yield a fallback pool item. Any
// other model failure is returned wrapped in ErrGeneratorUnavailable.
func (g *Generator) Generate(ctx context.Context, mode Mode, tier Tier, round int, recentlyUsed []string) (*Item, error) {
	if round < 1 {
		round = 1
	}

	mode, tier, settings := g.catalog.resolve(mode, tier)
	fam := g.catalog.Families[settings.Family]

	system := settings.Templates[tier] + exclusionClause(fam.ItemNoun, recentlyUsed)
	user := fmt.Sprintf("Generate a %s level %s for round %d.", tier, fam.ItemNoun, round)

	callCtx := ctx
	cancel := func() {}
	if g.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
	}
	defer cancel()

	start := time.Now()
	resp, err := g.llm.Generate(callCtx, llm.UserPrompt(system, user, fam.Temperature, fam.MaxTokens))
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			g.log.Warn("practice generation timed out, using fallback",
				"mode", mode, "tier", tier, "timeout", g.timeout)
			return g.fallback(settings, mode, tier, round), nil
		}
		return nil, fmt.Errorf("%w: %w", ErrGeneratorUnavailable, err)
	}

	item, err := g.parse(settings.Family, resp.Content)
	if err != nil {
		g.log.Warn("practice generation unparseable, using fallback",
			"mode", mode, "tier", tier, "error", err)
		return g.fallback(settings, mode, tier, round), nil
	}

	item.Mode, item.Difficulty, item.Round = mode, tier, round
	g.log.Debug("practice item generated",
		"mode", mode, "tier", tier, "round", round,
		"output_tokens", resp.OutputTokens, "elapsed", time.Since(start))
	return item, nil
}

func (g *Generator) parse(f Family, content string) (*Item, error) {
	switch f {
	case FamilyQuiz:
		var out struct {
			Question string `json:"question"`
			Answer   string `json:"answer"`
		}
		if err := llm.DecodeJSON(content, quizSchema, &out); err != nil {
			return nil, err
		}
		return &Item{Family: f, Question: out.Question, Answer: out.Answer, Source: SourceGenerated}, nil
	case FamilySentence:
		var out struct {
			Sentence  string   `json:"sentence"`
			Scrambled []string `json:"scrambled"`
		}
		if err := llm.DecodeJSON(content, sentenceSchema, &out); err != nil {
			return nil, err
		}
		return &Item{
			Family:    f,
			Sentence:  out.Sentence,
			Scrambled: g.shuffle(out.Scrambled),
			Source:    SourceGenerated,
		}, nil
	}
	return nil, fmt.Errorf("unknown family %q", f)
}

func (g *Generator) fallback(settings *ModeSettings, mode Mode, tier Tier, round int) *Item {
	pool := settings.Fallback[tier]
	pick := pool[g.rng.IntN(len(pool))]

	item := &Item{
		Family:     settings.Family,
		Mode:       mode,
		Difficulty: tier,
		Round:      round,
		Source:     SourceFallback,
	}
	switch settings.Family {
	case FamilyQuiz:
		item.Question, item.Answer = pick.Question, pick.Answer
	case FamilySentence:
		item.Sentence = pick.Sentence
		item.Scrambled = g.shuffle(strings.Fields(pick.Sentence))
	}
	return item
}

// shuffle returns a Fisher-Yates permutation of a copy of words.
func (g *Generator) shuffle(words []string) []string {
	out := make([]string, len(words))
	copy(out, words)
	for i := len(out) - 1; i > 0; i-- {
		j := g.rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// exclusionClause asks the model to avoid the most recent items.
func exclusionClause(noun string, recentlyUsed []string) string {
	var recent []string
	for _, r := range recentlyUsed {
		if r = strings.TrimSpace(r); r != "" {
			recent = append(recent, r)
		}
	}
	if len(recent) == 0 {
		return ""
	}
	if len(recent) > maxExcluded {
		recent = recent[len(recent)-maxExcluded:]
	}
	return fmt.Sprintf("\n\nIMPORTANT: Do NOT repeat these %ss: %s. Generate a completely different %s.",
		noun, strings.Join(recent, "; "), noun)
}

var quizSchema = &llm.Schema{
	Name: "practice_quiz_item",
	Definition: map[string]any{
		"type":     "object",
		"required": []string{"question", "answer"},
		"properties": map[string]any{
			"question": llm.NonEmptyString(),
			"answer":   llm.NonEmptyString(),
		},
	},
}

var sentenceSchema = &llm.Schema{
	Name: "practice_sentence_item",
	Definition: map[string]any{
		"type":     "object",
		"required": []string{"sentence", "scrambled"},
		"properties": map[string]any{
			"sentence": llm.NonEmptyString(),
			"scrambled": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    llm.NonEmptyString(),
			},
		},
	},
}
