package similarity

import "strings"

// themeKeywords groups domain keywords into named themes. Two items that
// hit the same theme are thematically related even when their names share
// no literal tokens. The groupings are tunable vocabulary, not physics.
var themeKeywords = map[string][]string{
	"fishing":       {"fishing", "fishery", "fisheries", "trawl", "trawling", "bycatch", "overfishing", "aquaculture", "harvest"},
	"pollution":     {"pollution", "pollutant", "contamination", "contaminant", "discharge", "effluent", "spill", "toxic", "runoff", "sewage"},
	"habitat":       {"habitat", "seabed", "seafloor", "benthic", "reef", "seagrass", "mangrove", "wetland", "nursery"},
	"noise":         {"noise", "acoustic", "sonar", "sound", "vibration"},
	"climate":       {"climate", "warming", "acidification", "temperature", "carbon", "emission"},
	"species":       {"species", "biodiversity", "population", "mortality", "spawning", "migration", "invasive"},
	"physical":      {"dredging", "anchoring", "abrasion", "extraction", "construction", "smothering", "sediment", "erosion"},
	"shipping":      {"shipping", "vessel", "ballast", "maritime", "port", "traffic"},
	"regulation":    {"regulation", "restriction", "closure", "quota", "permit", "zoning", "enforcement", "monitoring", "assessment"},
	"restoration":   {"restoration", "rehabilitation", "recovery", "protection", "conservation", "mitigation"},
	"waste":         {"waste", "litter", "debris", "plastic", "dumping"},
	"nutrient":      {"nutrient", "eutrophication", "algal", "hypoxia", "nitrogen", "phosphorus"},
}

// Themes returns the set of domain themes whose keywords appear in the text.
func Themes(text string) map[string]bool {
	lower := strings.ToLower(text)
	hits := make(map[string]bool)
	for theme, keywords := range themeKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hits[theme] = true
				break
			}
		}
	}
	return hits
}

// ThemeOverlap scores the thematic relatedness of two texts in [0,1]:
// the Jaccard ratio of their theme sets. Two texts hitting no themes at
// all score 0, not 1; absence of themes is absence of evidence.
func ThemeOverlap(a, b string) float64 {
	themesA, themesB := Themes(a), Themes(b)
	if len(themesA) == 0 || len(themesB) == 0 {
		return 0
	}
	return Jaccard(themesA, themesB)
}

// SharesTheme reports whether two texts hit at least one common theme.
func SharesTheme(a, b string) bool {
	themesA := Themes(a)
	if len(themesA) == 0 {
		return false
	}
	for theme := range Themes(b) {
		if themesA[theme] {
			return true
		}
	}
	return false
}
