package collector

// QueryTemplate is one named, data-driven query against the global
// news/events search API: a query-language expression, the category it
// maps to, and a human description. Adding a new template is a data edit,
// never a code change.
type QueryTemplate struct {
	Query       string
	Category    string
	Description string
}

// DefaultQueryTemplates is the additive table of named queries the
// events-style adapter consults. Operators extend coverage by adding
// entries here, not by subclassing the adapter.
var DefaultQueryTemplates = map[string]QueryTemplate{
	"armed-conflict": {
		Query:       `theme:ARMEDCONFLICT`,
		Category:    "conflict",
		Description: "Armed conflict and military engagement events",
	},
	"sanctions-regime": {
		Query:       `theme:SANCTIONS`,
		Category:    "financial",
		Description: "Economic sanctions actions and designations",
	},
	"cyber-incident": {
		Query:       `theme:CYBER_ATTACK`,
		Category:    "technology",
		Description: "Reported cyber intrusion or disruption events",
	},
	"diplomatic-meeting": {
		Query:       `theme:DIPLOMATIC_MEETING`,
		Category:    "geopolitics",
		Description: "Bilateral or multilateral diplomatic engagements",
	},
	"civil-unrest": {
		Query:       `theme:PROTEST`,
		Category:    "political",
		Description: "Protest, riot, and civil disturbance events",
	},
}
