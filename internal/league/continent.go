package league

var continents = map[string][]string{
	"Europe": {
		"England", "Spain", "Germany", "Italy", "France", "Netherlands", "Portugal",
		"Belgium", "Scotland", "Switzerland", "Austria", "Denmark", "Norway",
		"Sweden", "Finland", "Poland", "Czech Republic", "Hungary", "Romania",
		"Bulgaria", "Croatia", "Serbia", "Slovenia", "Slovakia", "Ukraine",
		"Belarus", "Moldova", "Estonia", "Latvia", "Lithuania", "Iceland",
		"Ireland", "Wales", "Northern Ireland", "Greece", "Cyprus", "Malta",
		"Turkey", "Russia",
	},
	"Asia": {
		"Japan", "South Korea", "China", "Australia", "India", "Thailand",
		"Vietnam", "Malaysia", "Singapore", "Indonesia", "Philippines",
		"Saudi Arabia", "Iran", "Iraq", "Kuwait", "Qatar", "UAE", "Oman",
		"Yemen", "Jordan", "Lebanon", "Syria", "Israel", "Palestine",
	},
	"North America": {
		"United States", "Canada", "Mexico", "Costa Rica", "Honduras",
		"El Salvador", "Guatemala", "Nicaragua", "Panama", "Belize", "Jamaica",
	},
	"South America": {
		"Brazil", "Argentina", "Chile", "Colombia", "Peru", "Uruguay",
		"Paraguay", "Ecuador", "Bolivia", "Venezuela", "Guyana", "Suriname",
	},
	"Africa": {
		"Egypt", "South Africa", "Nigeria", "Ghana", "Morocco", "Algeria",
		"Tunisia", "Senegal", "Cameroon", "Ivory Coast", "Kenya", "Uganda",
	},
}

var countryContinent = func() map[string]string {
	m := make(map[string]string)
	for continent, countries := range continents {
		for _, c := range countries {
			m[c] = continent
		}
	}
	return m
}()

// ContinentFromCountry returns the continent of a country name, or
// UnknownContinent. Australia is listed with Asia as its confederation is
// the AFC.
func ContinentFromCountry(country string) string {
	if c, ok := countryContinent[country]; ok {
		return c
	}
	return UnknownContinent
}

// Country is one entry of a provider's country listing.
type Country struct {
	Name          string `json:"country" yaml:"country"`
	Code          string `json:"country_code" yaml:"country_code"`
	GoverningBody string `json:"governing_body" yaml:"governing_body"`
}

// Group is one competition group of a provider's league listing.
type Group struct {
	Type    Type              `json:"league_type" yaml:"league_type"`
	Leagues []DiscoveredEntry `json:"leagues" yaml:"leagues"`
}

// DiscoveredEntry is one competition inside a Group.
type DiscoveredEntry struct {
	ID              int    `json:"league_id" yaml:"league_id"`
	CompetitionName string `json:"competition_name" yaml:"competition_name"`
	Gender          string `json:"gender" yaml:"gender"`
	Tier            Tier   `json:"tier" yaml:"tier"`
	FirstSeason     string `json:"first_season" yaml:"first_season"`
	LastSeason      string `json:"last_season" yaml:"last_season"`
}

// RegisterDiscovered adds the competitions a provider lists for one country.
// International and national team groups are ignored, cups only count when
// includeCups is set, and entries of the other gender are skipped. Discovered
// leagues are never major. It returns the number registered.
func (r *Registry) RegisterDiscovered(country Country, groups []Group, includeCups bool, gender string) int {
	g := normalizeGender(gender)
	continent := ContinentFromCountry(country.Name)
	n := 0
	for _, group := range groups {
		t := League{Type: group.Type}.normalized().Type
		if t != DomesticLeague && !(includeCups && t == DomesticCup) {
			continue
		}
		for _, e := range group.Leagues {
			if normalizeGender(e.Gender) != g {
				continue
			}
			ok := r.Register(League{
				ID:            e.ID,
				Name:          e.CompetitionName,
				Country:       country.Name,
				CountryCode:   country.Code,
				Tier:          e.Tier,
				Type:          t,
				Gender:        g,
				FirstSeason:   e.FirstSeason,
				LastSeason:    e.LastSeason,
				Continent:     continent,
				GoverningBody: country.GoverningBody,
			})
			if ok {
				n++
			}
		}
	}
	return n
}
