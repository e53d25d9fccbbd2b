package matching

import "strings"

type team struct {
	canonical string
	aliases   []string
}

// Order matters: an abbreviation shared by two franchises resolves to the
// later entry (BOS is the Bruins, PHI the Eagles).
var teams = []team{
	// NBA
	{"Lakers", []string{"LAL", "Los Angeles Lakers", "LA Lakers"}},
	{"Celtics", []string{"BOS", "Boston Celtics"}},
	{"Warriors", []string{"GSW", "Golden State Warriors", "GS Warriors"}},
	{"Bucks", []string{"MIL", "Milwaukee Bucks"}},
	{"Nuggets", []string{"DEN", "Denver Nuggets"}},
	{"76ers", []string{"PHI", "Philadelphia 76ers", "Sixers"}},
	{"Heat", []string{"MIA", "Miami Heat"}},
	{"Suns", []string{"PHX", "Phoenix Suns"}},
	{"Mavericks", []string{"DAL", "Dallas Mavericks", "Mavs"}},
	{"Knicks", []string{"NYK", "New York Knicks", "NY Knicks"}},
	// NFL
	{"Chiefs", []string{"KC", "Kansas City Chiefs"}},
	{"Eagles", []string{"PHI", "Philadelphia Eagles"}},
	{"Bills", []string{"BUF", "Buffalo Bills"}},
	{"49ers", []string{"SF", "San Francisco 49ers", "Niners"}},
	{"Cowboys", []string{"DAL", "Dallas Cowboys"}},
	{"Ravens", []string{"BAL", "Baltimore Ravens"}},
	{"Lions", []string{"DET", "Detroit Lions"}},
	{"Dolphins", []string{"MIA", "Miami Dolphins"}},
	{"Packers", []string{"GB", "Green Bay Packers"}},
	{"Bengals", []string{"CIN", "Cincinnati Bengals"}},
	// MLB
	{"Yankees", []string{"NYY", "New York Yankees", "NY Yankees"}},
	{"Dodgers", []string{"LAD", "Los Angeles Dodgers", "LA Dodgers"}},
	{"Braves", []string{"ATL", "Atlanta Braves"}},
	{"Astros", []string{"HOU", "Houston Astros"}},
	{"Red Sox", []string{"BOS", "Boston Red Sox"}},
	// NHL
	{"Oilers", []string{"EDM", "Edmonton Oilers"}},
	{"Panthers", []string{"FLA", "Florida Panthers"}},
	{"Avalanche", []string{"COL", "Colorado Avalanche"}},
	{"Rangers", []string{"NYR", "New York Rangers"}},
	{"Bruins", []string{"BOS", "Boston Bruins"}},
}

// TeamAliases returns a fresh lowercase alias → canonical team table covering
// the major US leagues.
func TeamAliases() map[string]string {
	m := make(map[string]string, len(teams)*4)
	for _, t := range teams {
		canonical := strings.ToLower(t.canonical)
		m[canonical] = canonical
		for _, a := range t.aliases {
			m[strings.ToLower(a)] = canonical
		}
	}
	return m
}
