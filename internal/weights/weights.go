// Package weights resolves per-feature weights for similarity ranking, either
// from explicit column weights or from a position-specific keyword policy.
package weights

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/VaishakhVipin/stattwin/internal/position"
)

// Group names a family of related statistics.
type Group string

const (
	Shooting    Group = "shooting"
	Passing     Group = "passing"
	Progression Group = "progression"
	Box         Group = "box"
	Defending   Group = "defending"
	Goalkeeping Group = "goalkeeping"
)

// Groups lists every keyword group in evaluation order.
var Groups = []Group{Shooting, Passing, Progression, Box, Defending, Goalkeeping}

// Keywords maps each group to the substrings that identify its features.
type Keywords map[Group][]string

// DefaultKeywords returns the keyword lists used for position weighting.
func DefaultKeywords() Keywords {
	return Keywords{
		Shooting:    {"shot", "xg", "goal", "np_xg", "sot"},
		Passing:     {"pass", "assist", "key_pass", "kp"},
		Progression: {"prog", "carr", "take_on", "dribbl"},
		Box:         {"box", "pen_area", "att_pen", "att_3rd", "touches_att"},
		Defending:   {"tackle", "interception", "clear", "block", "aerial", "press"},
		Goalkeeping: {"save", "psxg", "stop", "claim", "sweep"},
	}
}

// Effect is how a position policy treats a keyword group.
type Effect int

const (
	Neutral Effect = iota
	Boost
	LightBoost
	Deemphasize
)

// Policy assigns an effect to keyword groups for one position.
type Policy map[Group]Effect

// DefaultPolicies returns the per-position emphasis rules.
func DefaultPolicies() map[position.Group]Policy {
	return map[position.Group]Policy{
		position.Forward: {
			Shooting:    Boost,
			Box:         Boost,
			Passing:     LightBoost,
			Progression: LightBoost,
			Defending:   Deemphasize,
		},
		position.Midfielder: {
			Passing:     Boost,
			Progression: Boost,
			Box:         LightBoost,
			Shooting:    Deemphasize,
		},
		position.Defender: {
			Defending:   Boost,
			Progression: LightBoost,
			Shooting:    Deemphasize,
		},
		position.Goalkeeper: {
			Goalkeeping: Boost,
			Shooting:    Deemphasize,
			Passing:     Deemphasize,
			Defending:   Deemphasize,
			Progression: Deemphasize,
		},
	}
}

// Config selects how weights are produced. Explicit ColumnWeights take
// precedence over Position.
type Config struct {
	ColumnWeights map[string]float64 `json:"column_weights,omitempty" yaml:"column_weights,omitempty"`
	Position      string             `json:"position,omitempty" yaml:"position,omitempty"`
	BaseWeight    float64            `json:"base_weight" yaml:"base_weight" validate:"gt=0"`
	Boost         float64            `json:"boost" yaml:"boost" validate:"gt=1"`
	LightBoost    float64            `json:"light_boost" yaml:"light_boost" validate:"gte=1"`
	Deemphasis    float64            `json:"deemphasis" yaml:"deemphasis" validate:"gt=0,lt=1"`
	Keywords      Keywords           `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// DefaultConfig returns uniform base weights and the standard factors.
func DefaultConfig() Config {
	return Config{
		BaseWeight: 1.0,
		Boost:      1.5,
		LightBoost: 1.25,
		Deemphasis: 0.75,
		Keywords:   DefaultKeywords(),
	}
}

// ForPosition returns the default configuration weighted towards pos.
func ForPosition(pos string) Config {
	cfg := DefaultConfig()
	cfg.Position = pos
	return cfg
}

var validate = validator.New()

// Validate checks the weighting factors.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid weight config: %w", err)
	}
	return nil
}

// Resolver produces one weight per feature column, in order.
type Resolver interface {
	Resolve(features []string) []float64
}

// Matcher decides whether a feature name belongs to a keyword list.
type Matcher interface {
	Match(feature string, keywords []string) bool
}

// SubstringMatcher matches when any keyword is a case-insensitive substring
// of the feature name.
type SubstringMatcher struct{}

// Match implements Matcher.
func (SubstringMatcher) Match(feature string, keywords []string) bool {
	name := strings.ToLower(feature)
	for _, k := range keywords {
		if k != "" && strings.Contains(name, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// Uniform assigns the same weight to every feature.
type Uniform float64

// Resolve implements Resolver.
func (u Uniform) Resolve(features []string) []float64 {
	w := make([]float64, len(features))
	for i := range w {
		w[i] = float64(u)
	}
	return w
}

// ConfigResolver resolves weights from a Config.
type ConfigResolver struct {
	cfg      Config
	matcher  Matcher
	policies map[position.Group]Policy
}

// Option customises a ConfigResolver.
type Option func(*ConfigResolver)

// WithMatcher replaces the keyword matcher.
func WithMatcher(m Matcher) Option {
	return func(r *ConfigResolver) { r.matcher = m }
}

// WithPolicies replaces the per-position policies.
func WithPolicies(p map[position.Group]Policy) Option {
	return func(r *ConfigResolver) { r.policies = p }
}

// NewResolver returns a resolver for cfg. A zero factor or empty keyword set
// falls back to the defaults.
func NewResolver(cfg Config, opts ...Option) *ConfigResolver {
	def := DefaultConfig()
	if cfg.BaseWeight == 0 {
		cfg.BaseWeight = def.BaseWeight
	}
	if cfg.Boost == 0 {
		cfg.Boost = def.Boost
	}
	if cfg.LightBoost == 0 {
		cfg.LightBoost = 1 + (cfg.Boost-1)/2
	}
	if cfg.Deemphasis == 0 {
		cfg.Deemphasis = def.Deemphasis
	}
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = def.Keywords
	}

	r := &ConfigResolver{
		cfg:      cfg,
		matcher:  SubstringMatcher{},
		policies: DefaultPolicies(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the effective configuration after defaults are applied.
func (r *ConfigResolver) Config() Config { return r.cfg }

// Resolve implements Resolver.
func (r *ConfigResolver) Resolve(features []string) []float64 {
	if len(r.cfg.ColumnWeights) > 0 {
		w := make([]float64, len(features))
		for i, f := range features {
			if v, ok := r.cfg.ColumnWeights[f]; ok {
				w[i] = v
			} else {
				w[i] = r.cfg.BaseWeight
			}
		}
		return w
	}

	w := Uniform(r.cfg.BaseWeight).Resolve(features)
	pos, ok := position.Primary(r.cfg.Position)
	if !ok {
		return w
	}
	policy := r.policies[pos]

	for _, group := range Groups {
		effect := policy[group]
		if effect == Neutral {
			continue
		}
		factor := r.factor(effect)
		keywords := r.cfg.Keywords[group]
		for i, f := range features {
			if r.matcher.Match(f, keywords) {
				w[i] *= factor
			}
		}
	}
	return w
}

func (r *ConfigResolver) factor(e Effect) float64 {
	switch e {
	case Boost:
		return r.cfg.Boost
	case LightBoost:
		return r.cfg.LightBoost
	case Deemphasize:
		return r.cfg.Deemphasis
	default:
		return 1
	}
}
