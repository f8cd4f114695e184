package engine

import (
	"strings"

	"github.com/recollect-ai/recollect/pkg/types"
)

// profileFieldRule maps query keywords onto one profile field.
type profileFieldRule struct {
	keywords []string
	path     string
	render   func(p *types.Profile) string
}

// profileFieldRules is the resolution table consulted before any memory
// search. Order matters: the first rule whose keywords appear in the query
// and whose field is populated wins alongside any later distinct matches.
var profileFieldRules = []profileFieldRule{
	{
		keywords: []string{"birthday", "born", "date of birth"},
		path:     "personalInfo.dateOfBirth",
		render: func(p *types.Profile) string {
			if p.PersonalInfo.DateOfBirth == nil {
				return ""
			}
			return p.PersonalInfo.DateOfBirth.String()
		},
	},
	{
		keywords: []string{"name"},
		path:     "personalInfo.name",
		render:   func(p *types.Profile) string { return p.PersonalInfo.Name },
	},
	{
		keywords: []string{"live", "location", "city", "address", "reside"},
		path:     "personalInfo.location",
		render: func(p *types.Profile) string {
			loc := p.PersonalInfo.Location
			parts := make([]string, 0, 3)
			for _, s := range []string{loc.City, loc.State, loc.Country} {
				if s != "" {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, ", ")
		},
	},
	{
		keywords: []string{"work", "company", "employer", "job", "position", "employed"},
		path:     "workInfo.employment",
		render: func(p *types.Profile) string {
			emp := p.WorkInfo.Employment
			switch {
			case emp.Position != "" && emp.Company != "":
				return emp.Position + " at " + emp.Company
			case emp.Company != "":
				return emp.Company
			default:
				return emp.Position
			}
		},
	},
	{
		keywords: []string{"skills", "skill"},
		path:     "workInfo.skills",
		render:   func(p *types.Profile) string { return strings.Join(p.WorkInfo.Skills, ", ") },
	},
	{
		keywords: []string{"spouse", "wife", "husband", "married"},
		path:     "familyInfo.spouse",
		render:   func(p *types.Profile) string { return p.FamilyInfo.Spouse },
	},
	{
		keywords: []string{"daughter", "son", "kids", "children", "family"},
		path:     "familyInfo.members",
		render: func(p *types.Profile) string {
			parts := make([]string, 0, len(p.FamilyInfo.Members))
			for _, m := range p.FamilyInfo.Members {
				if m.Relation != "" {
					parts = append(parts, m.Name+" ("+m.Relation+")")
				} else {
					parts = append(parts, m.Name)
				}
			}
			return strings.Join(parts, ", ")
		},
	},
}

// resolveProfile answers the query directly from the structured profile
// where possible. Matches come from the keyword table plus a value scan:
// service-provider kinds ("dentist") resolve by kind, and any stored value
// mentioned verbatim in the query resolves its own field. Every hit is
// returned with a full score so profile answers pin above memory results.
func resolveProfile(profile *types.Profile, query string) []SearchResult {
	if profile == nil {
		return nil
	}
	lower := strings.ToLower(query)

	var results []SearchResult
	seen := map[string]bool{}
	add := func(path, answer string) {
		if answer == "" || seen[path] {
			return
		}
		seen[path] = true
		results = append(results, SearchResult{
			Source:    SourceProfile,
			FieldPath: path,
			Answer:    answer,
			Score:     1.0,
		})
	}

	for _, rule := range profileFieldRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				add(rule.path, rule.render(profile))
				break
			}
		}
	}

	// Service providers resolve by their kind: "who is my dentist?".
	for kind, sp := range profile.ServiceProviders {
		if !strings.Contains(lower, strings.ToLower(kind)) {
			continue
		}
		answer := sp.Name
		if sp.Company != "" {
			if answer != "" {
				answer += " (" + sp.Company + ")"
			} else {
				answer = sp.Company
			}
		}
		add("serviceProviders."+kind, answer)
	}

	// Value scan: a query naming a stored value ("How long have I been at
	// Microsoft?") resolves the owning field even without a keyword hit.
	for _, probe := range []struct {
		value string
		path  string
		rule  int // index into profileFieldRules for rendering
	}{
		{profile.WorkInfo.Employment.Company, "workInfo.employment", 3},
		{profile.PersonalInfo.Location.City, "personalInfo.location", 2},
		{profile.FamilyInfo.Spouse, "familyInfo.spouse", 5},
	} {
		if probe.value != "" && strings.Contains(lower, strings.ToLower(probe.value)) {
			add(probe.path, profileFieldRules[probe.rule].render(profile))
		}
	}

	return results
}
