package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	apierrors "github.com/VaishakhVipin/stattwin/internal/errors"
	"github.com/VaishakhVipin/stattwin/internal/league"
	api "github.com/VaishakhVipin/stattwin/pkg/contracts/api/v1"
)

// LeagueQuery narrows a league listing. Zero fields do not constrain.
type LeagueQuery struct {
	Continent string
	Country   string // country code, e.g. "ESP"
	Tier      string
	Search    string
	MajorOnly bool
}

// LeagueService serves the league catalogue.
type LeagueService struct {
	registry *league.Registry
	logger   *slog.Logger
}

// NewLeagueService creates a league service. A nil registry selects the
// built-in league set.
func NewLeagueService(registry *league.Registry, logger *slog.Logger) *LeagueService {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = league.Default()
	}
	return &LeagueService{
		registry: registry,
		logger:   logger.With(slog.String("component", "league_service")),
	}
}

// List returns the leagues matching q ordered by id, except a country
// listing which keeps registration order.
func (s *LeagueService) List(ctx context.Context, q LeagueQuery) (*api.LeaguesResponse, error) {
	var tier league.Tier
	if q.Tier != "" {
		tier = league.Tier(strings.ToLower(strings.TrimSpace(q.Tier)))
		if !validTier(tier) {
			return nil, apierrors.NewAppError(apierrors.ErrTypeValidation,
				fmt.Sprintf("tier %q must be one of 1st, 2nd, 3rd, 4th, 5th", q.Tier), ErrInvalidTier)
		}
	}

	var base []league.League
	switch {
	case q.Country != "":
		base = s.registry.ByCountry(q.Country)
	case q.Search != "":
		base = s.registry.Search(q.Search)
	case q.MajorOnly:
		base = s.registry.Major()
	case q.Continent != "":
		base = s.registry.ByContinent(q.Continent)
	case tier != "":
		base = s.registry.ByTier(tier)
	default:
		base = s.registry.All()
	}

	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]api.League, 0, len(base))
	for _, l := range base {
		if q.Continent != "" && !strings.EqualFold(l.Continent, q.Continent) {
			continue
		}
		if tier != "" && l.Tier != tier {
			continue
		}
		if q.MajorOnly && !l.Major {
			continue
		}
		if search != "" && !matchesSearch(l, search) {
			continue
		}
		out = append(out, toLeague(l))
	}

	s.logger.DebugContext(ctx, "leagues listed",
		slog.Int("count", len(out)),
		slog.String("continent", q.Continent),
		slog.String("country", q.Country),
	)
	return &api.LeaguesResponse{Count: len(out), Leagues: out}, nil
}

// Get returns one league by id.
func (s *LeagueService) Get(ctx context.Context, id int) (*api.League, error) {
	l, ok := s.registry.Lookup(id)
	if !ok {
		s.logger.DebugContext(ctx, "league not found", slog.Int("id", id))
		return nil, apierrors.NewAppError(apierrors.ErrTypeNotFound,
			fmt.Sprintf("league %d not found", id), ErrLeagueNotFound).WithContext("league_id", id)
	}
	out := toLeague(l)
	return &out, nil
}

// Hierarchy groups every league by continent and country.
func (s *LeagueService) Hierarchy(ctx context.Context) *api.HierarchyResponse {
	h := s.registry.Hierarchy()
	out := &api.HierarchyResponse{Continents: make(map[string]map[string][]api.League, len(h))}
	for continent, countries := range h {
		byCountry := make(map[string][]api.League, len(countries))
		for country, leagues := range countries {
			converted := make([]api.League, len(leagues))
			for i, l := range leagues {
				converted[i] = toLeague(l)
			}
			byCountry[country] = converted
		}
		out.Continents[continent] = byCountry
	}
	return out
}

// Count returns the number of registered leagues.
func (s *LeagueService) Count() int { return s.registry.Len() }

func validTier(t league.Tier) bool {
	switch t {
	case league.TierFirst, league.TierSecond, league.TierThird, league.TierFourth, league.TierFifth:
		return true
	}
	return false
}

func matchesSearch(l league.League, q string) bool {
	return strings.Contains(strings.ToLower(l.Name), q) ||
		strings.Contains(strings.ToLower(l.Country), q) ||
		strings.Contains(strings.ToLower(l.CountryCode), q)
}

func toLeague(l league.League) api.League {
	return api.League{
		ID:          l.ID,
		Name:        l.Name,
		Country:     l.Country,
		CountryCode: l.CountryCode,
		Continent:   l.Continent,
		Tier:        string(l.Tier),
		Type:        string(l.Type),
		Gender:      l.Gender,
		Major:       l.Major,
	}
}
