package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profile is the single durable self-description document for an owner.
// Sections are optional; extraction fills in whatever it is confident about
// and later updates are deep-merged field by field, so a later extraction
// never blanks a field it did not explicitly extract.
type Profile struct {
	OwnerID          string                     `json:"owner_id"`
	PersonalInfo     PersonalInfo               `json:"personal_info"`
	WorkInfo         WorkInfo                   `json:"work_info"`
	FamilyInfo       FamilyInfo                 `json:"family_info"`
	ServiceProviders map[string]ServiceProvider `json:"service_providers,omitempty"` // keyed by kind: "dentist", "doctor", ...
	UpdatedAt        time.Time                  `json:"updated_at"`
}

// PersonalInfo holds identity and residence facts.
type PersonalInfo struct {
	Name        string   `json:"name,omitempty"`
	DateOfBirth *Date    `json:"date_of_birth,omitempty"`
	Location    Location `json:"location"`
}

// Location is a place of residence.
type Location struct {
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// WorkInfo holds employment facts and skills.
type WorkInfo struct {
	Employment Employment `json:"employment"`
	Skills     []string   `json:"skills,omitempty"`
}

// Employment describes the current employer.
type Employment struct {
	Company   string `json:"company,omitempty"`
	Position  string `json:"position,omitempty"`
	StartDate *Date  `json:"start_date,omitempty"`
}

// FamilyInfo holds relationship facts.
type FamilyInfo struct {
	Spouse  string         `json:"spouse,omitempty"`
	Members []FamilyMember `json:"members,omitempty"`
}

// FamilyMember is a named relative.
type FamilyMember struct {
	Name     string `json:"name"`
	Relation string `json:"relation,omitempty"` // "daughter", "father", ...
}

// ServiceProvider is a recurring provider such as a doctor or mechanic.
type ServiceProvider struct {
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
}

// Date is a calendar date where the year may be unknown (birthdays are often
// stated without one). Year 0 means "unknown year".
type Date struct {
	Year  int        `json:"year,omitempty"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// String renders the date as YYYY-MM-DD, or MM-DD when the year is unknown.
func (d Date) String() string {
	if d.Year == 0 {
		return fmt.Sprintf("%02d-%02d", int(d.Month), d.Day)
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ProfilePatch is a partial update against a Profile. Nil pointers and empty
// strings mean "not extracted, leave alone". Applying an empty patch is a
// no-op, not an error.
type ProfilePatch struct {
	PersonalInfo     *PersonalInfoPatch         `json:"personal_info,omitempty"`
	WorkInfo         *WorkInfoPatch             `json:"work_info,omitempty"`
	FamilyInfo       *FamilyInfoPatch           `json:"family_info,omitempty"`
	ServiceProviders map[string]ServiceProvider `json:"service_providers,omitempty"`
}

// PersonalInfoPatch is the patch form of PersonalInfo.
type PersonalInfoPatch struct {
	Name        *string `json:"name,omitempty"`
	DateOfBirth *Date   `json:"date_of_birth,omitempty"`
	City        *string `json:"city,omitempty"`
	State       *string `json:"state,omitempty"`
	Country     *string `json:"country,omitempty"`
}

// WorkInfoPatch is the patch form of WorkInfo.
type WorkInfoPatch struct {
	Company   *string  `json:"company,omitempty"`
	Position  *string  `json:"position,omitempty"`
	StartDate *Date    `json:"start_date,omitempty"`
	Skills    []string `json:"skills,omitempty"` // appended, deduplicated
}

// FamilyInfoPatch is the patch form of FamilyInfo.
type FamilyInfoPatch struct {
	Spouse  *string        `json:"spouse,omitempty"`
	Members []FamilyMember `json:"members,omitempty"` // merged by name
}

// IsZero reports whether the patch carries no extracted fields.
func (p *ProfilePatch) IsZero() bool {
	if p == nil {
		return true
	}
	return p.PersonalInfo == nil && p.WorkInfo == nil && p.FamilyInfo == nil &&
		len(p.ServiceProviders) == 0
}

// Apply deep-merges the patch into the profile, section by section. Only
// fields present in the patch are written; everything else keeps its current
// value. Apply is idempotent: applying the same patch twice yields the same
// profile as applying it once.
func (pr *Profile) Apply(p *ProfilePatch) {
	if p.IsZero() {
		return
	}

	if pi := p.PersonalInfo; pi != nil {
		if pi.Name != nil {
			pr.PersonalInfo.Name = *pi.Name
		}
		if pi.DateOfBirth != nil {
			dob := *pi.DateOfBirth
			pr.PersonalInfo.DateOfBirth = &dob
		}
		if pi.City != nil {
			pr.PersonalInfo.Location.City = *pi.City
		}
		if pi.State != nil {
			pr.PersonalInfo.Location.State = *pi.State
		}
		if pi.Country != nil {
			pr.PersonalInfo.Location.Country = *pi.Country
		}
	}

	if wi := p.WorkInfo; wi != nil {
		if wi.Company != nil {
			pr.WorkInfo.Employment.Company = *wi.Company
		}
		if wi.Position != nil {
			pr.WorkInfo.Employment.Position = *wi.Position
		}
		if wi.StartDate != nil {
			sd := *wi.StartDate
			pr.WorkInfo.Employment.StartDate = &sd
		}
		for _, skill := range wi.Skills {
			if !containsFold(pr.WorkInfo.Skills, skill) {
				pr.WorkInfo.Skills = append(pr.WorkInfo.Skills, skill)
			}
		}
	}

	if fi := p.FamilyInfo; fi != nil {
		if fi.Spouse != nil {
			pr.FamilyInfo.Spouse = *fi.Spouse
		}
		for _, m := range fi.Members {
			pr.mergeFamilyMember(m)
		}
	}

	if len(p.ServiceProviders) > 0 {
		if pr.ServiceProviders == nil {
			pr.ServiceProviders = make(map[string]ServiceProvider, len(p.ServiceProviders))
		}
		for kind, sp := range p.ServiceProviders {
			existing := pr.ServiceProviders[kind]
			if sp.Name != "" {
				existing.Name = sp.Name
			}
			if sp.Company != "" {
				existing.Company = sp.Company
			}
			pr.ServiceProviders[kind] = existing
		}
	}
}

// mergeFamilyMember updates a member with the same name in place or appends.
func (pr *Profile) mergeFamilyMember(m FamilyMember) {
	for i, existing := range pr.FamilyInfo.Members {
		if strings.EqualFold(existing.Name, m.Name) {
			if m.Relation != "" {
				pr.FamilyInfo.Members[i].Relation = m.Relation
			}
			return
		}
	}
	pr.FamilyInfo.Members = append(pr.FamilyInfo.Members, m)
}

// FieldPaths returns the dotted paths of every field the patch would set,
// e.g. "personalInfo.dateOfBirth" or "workInfo.employment.company", in a
// stable order (provider kinds sorted). Useful for provenance logging and
// for callers that audit what an extraction touched.
func (p *ProfilePatch) FieldPaths() []string {
	if p == nil {
		return nil
	}
	var paths []string
	if pi := p.PersonalInfo; pi != nil {
		if pi.Name != nil {
			paths = append(paths, "personalInfo.name")
		}
		if pi.DateOfBirth != nil {
			paths = append(paths, "personalInfo.dateOfBirth")
		}
		if pi.City != nil {
			paths = append(paths, "personalInfo.location.city")
		}
		if pi.State != nil {
			paths = append(paths, "personalInfo.location.state")
		}
		if pi.Country != nil {
			paths = append(paths, "personalInfo.location.country")
		}
	}
	if wi := p.WorkInfo; wi != nil {
		if wi.Company != nil {
			paths = append(paths, "workInfo.employment.company")
		}
		if wi.Position != nil {
			paths = append(paths, "workInfo.employment.position")
		}
		if wi.StartDate != nil {
			paths = append(paths, "workInfo.employment.startDate")
		}
		if len(wi.Skills) > 0 {
			paths = append(paths, "workInfo.skills")
		}
	}
	if fi := p.FamilyInfo; fi != nil {
		if fi.Spouse != nil {
			paths = append(paths, "familyInfo.spouse")
		}
		if len(fi.Members) > 0 {
			paths = append(paths, "familyInfo.members")
		}
	}
	kinds := make([]string, 0, len(p.ServiceProviders))
	for kind := range p.ServiceProviders {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		paths = append(paths, "serviceProviders."+kind)
	}
	return paths
}

// containsFold reports whether list contains s, case-insensitively.
func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
