// Package league keeps the registry of domestic club competitions players are
// drawn from. A Registry is an explicit value; callers create one with
// Default or New and pass it where league metadata is needed, for example to
// turn league ids into the names a filter.Spec matches on.
package league

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"
)

// Tier is the level of a competition within its country.
type Tier string

const (
	TierFirst  Tier = "1st"
	TierSecond Tier = "2nd"
	TierThird  Tier = "3rd"
	TierFourth Tier = "4th"
	TierFifth  Tier = "5th"
)

// Type classifies a competition.
type Type string

const (
	DomesticLeague Type = "domestic_leagues"
	DomesticCup    Type = "domestic_cups"
	International  Type = "international_competitions"
	NationalTeam   Type = "national_team_competitions"
)

// UnknownContinent is reported for countries outside the built-in map.
const UnknownContinent = "Unknown"

// League describes one competition.
type League struct {
	ID            int    `yaml:"id" json:"id"`
	Name          string `yaml:"name" json:"name"`
	Country       string `yaml:"country" json:"country"`
	CountryCode   string `yaml:"country_code" json:"country_code"`
	Tier          Tier   `yaml:"tier" json:"tier"`
	Type          Type   `yaml:"type" json:"type"`
	Gender        string `yaml:"gender" json:"gender"`
	FirstSeason   string `yaml:"first_season,omitempty" json:"first_season,omitempty"`
	LastSeason    string `yaml:"last_season,omitempty" json:"last_season,omitempty"`
	Major         bool   `yaml:"major" json:"major"`
	Continent     string `yaml:"continent" json:"continent"`
	GoverningBody string `yaml:"governing_body,omitempty" json:"governing_body,omitempty"`
}

func (l League) normalized() League {
	switch Tier(strings.TrimSpace(string(l.Tier))) {
	case TierFirst, TierSecond, TierThird, TierFourth, TierFifth:
		l.Tier = Tier(strings.TrimSpace(string(l.Tier)))
	default:
		l.Tier = TierFirst
	}
	switch Type(strings.ToLower(strings.TrimSpace(string(l.Type)))) {
	case DomesticCup:
		l.Type = DomesticCup
	case International:
		l.Type = International
	case NationalTeam:
		l.Type = NationalTeam
	default:
		l.Type = DomesticLeague
	}
	l.Gender = normalizeGender(l.Gender)
	l.CountryCode = strings.ToUpper(l.CountryCode)
	if l.Continent == "" {
		l.Continent = ContinentFromCountry(l.Country)
	}
	return l
}

func normalizeGender(g string) string {
	g = strings.ToUpper(strings.TrimSpace(g))
	if g != "F" {
		return "M"
	}
	return g
}

//go:embed leagues.yaml
var defaultLeagues []byte

type registryFile struct {
	Leagues []League `yaml:"leagues"`
}

// Registry indexes leagues by id and country. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	leagues   map[int]League
	byCountry map[string][]int
}

// New returns an empty registry holding leagues.
func New(leagues ...League) *Registry {
	r := &Registry{
		leagues:   make(map[int]League),
		byCountry: make(map[string][]int),
	}
	for _, l := range leagues {
		r.Register(l)
	}
	return r
}

// Default returns a registry seeded with the built-in core leagues.
func Default() *Registry {
	r := New()
	if _, err := r.load(defaultLeagues); err != nil {
		panic(fmt.Sprintf("league: built-in registry is invalid: %v", err))
	}
	return r
}

// Register adds or replaces a league. International and national team
// competitions are rejected and reported as false.
func (r *Registry) Register(l League) bool {
	l = l.normalized()
	if l.Type == International || l.Type == NationalTeam {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.leagues[l.ID]; ok && old.CountryCode != l.CountryCode {
		r.byCountry[old.CountryCode] = removeID(r.byCountry[old.CountryCode], l.ID)
	}
	if _, ok := r.leagues[l.ID]; !ok || !containsID(r.byCountry[l.CountryCode], l.ID) {
		r.byCountry[l.CountryCode] = append(r.byCountry[l.CountryCode], l.ID)
	}
	r.leagues[l.ID] = l
	return true
}

// RegisterAll adds discovered leagues. Only domestic leagues are accepted,
// plus domestic cups when includeCups is set. It returns the number added or
// updated.
func (r *Registry) RegisterAll(leagues []League, includeCups bool) int {
	n := 0
	for _, l := range leagues {
		t := l.normalized().Type
		if t == DomesticLeague || (includeCups && t == DomesticCup) {
			if r.Register(l) {
				n++
			}
		}
	}
	return n
}

// Load reads a YAML document with a top-level leagues list into the registry.
func (r *Registry) Load(rd io.Reader) (int, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return 0, fmt.Errorf("read league registry: %w", err)
	}
	return r.load(data)
}

// LoadFile reads a YAML league file into the registry.
func (r *Registry) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read league registry: %w", err)
	}
	return r.load(data)
}

func (r *Registry) load(data []byte) (int, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse league registry: %w", err)
	}
	n := 0
	for i, l := range file.Leagues {
		if l.ID == 0 || l.Name == "" {
			return n, fmt.Errorf("league entry %d: id and name are required", i)
		}
		if r.Register(l) {
			n++
		}
	}
	return n, nil
}

// Lookup returns the league with the given id.
func (r *Registry) Lookup(id int) (League, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.leagues[id]
	return l, ok
}

// Len returns the number of registered leagues.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.leagues)
}

// All returns every league ordered by id.
func (r *Registry) All() []League {
	return r.where(func(League) bool { return true })
}

// IDs returns every league id in ascending order.
func (r *Registry) IDs() []int {
	all := r.All()
	ids := make([]int, len(all))
	for i, l := range all {
		ids[i] = l.ID
	}
	return ids
}

// Major returns the major leagues ordered by id.
func (r *Registry) Major() []League {
	return r.where(func(l League) bool { return l.Major })
}

// ByContinent returns the leagues of continent. Matching is case-insensitive.
func (r *Registry) ByContinent(continent string) []League {
	return r.where(func(l League) bool { return strings.EqualFold(l.Continent, continent) })
}

// ByTier returns the leagues at tier.
func (r *Registry) ByTier(tier Tier) []League {
	return r.where(func(l League) bool { return l.Tier == tier })
}

// ByCountry returns the leagues of a country code in registration order.
func (r *Registry) ByCountry(code string) []League {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byCountry[strings.ToUpper(code)]
	out := make([]League, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.leagues[id])
	}
	return out
}

// Search returns leagues whose name, country or country code contains query,
// ignoring case.
func (r *Registry) Search(query string) []League {
	q := strings.ToLower(strings.TrimSpace(query))
	return r.where(func(l League) bool {
		return strings.Contains(strings.ToLower(l.Name), q) ||
			strings.Contains(strings.ToLower(l.Country), q) ||
			strings.Contains(strings.ToLower(l.CountryCode), q)
	})
}

// Hierarchy groups leagues by continent then country.
func (r *Registry) Hierarchy() map[string]map[string][]League {
	out := make(map[string]map[string][]League)
	for _, l := range r.All() {
		continent := l.Continent
		if continent == "" {
			continent = UnknownContinent
		}
		if out[continent] == nil {
			out[continent] = make(map[string][]League)
		}
		out[continent][l.Country] = append(out[continent][l.Country], l)
	}
	return out
}

// Names returns the names of the given league ids, skipping unknown ids.
// The result is suitable for filter.Spec.Leagues.
func (r *Registry) Names(ids []int) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if l, ok := r.Lookup(id); ok {
			out = append(out, l.Name)
		}
	}
	return out
}

func (r *Registry) where(keep func(League) bool) []League {
	r.mu.RLock()
	out := make([]League, 0, len(r.leagues))
	for _, l := range r.leagues {
		if keep(l) {
			out = append(out, l)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []int, id int) []int {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
