package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recollect-ai/recollect/pkg/types"
)

func fullTestProfile() *types.Profile {
	return &types.Profile{
		OwnerID: "owner-1",
		PersonalInfo: types.PersonalInfo{
			Name:        "Alex Chen",
			DateOfBirth: &types.Date{Month: time.December, Day: 29},
			Location:    types.Location{City: "Seattle", State: "WA"},
		},
		WorkInfo: types.WorkInfo{
			Employment: types.Employment{Company: "Microsoft", Position: "Software Engineer"},
			Skills:     []string{"Go", "Python"},
		},
		FamilyInfo: types.FamilyInfo{
			Spouse:  "Jamie",
			Members: []types.FamilyMember{{Name: "Emma", Relation: "daughter"}},
		},
		ServiceProviders: map[string]types.ServiceProvider{
			"dentist": {Name: "Dr. Smith", Company: "Aspen Dental"},
		},
	}
}

func TestResolveProfileBirthday(t *testing.T) {
	results := resolveProfile(fullTestProfile(), "When is my birthday?")
	require.Len(t, results, 1)

	assert.Equal(t, SourceProfile, results[0].Source)
	assert.Equal(t, "personalInfo.dateOfBirth", results[0].FieldPath)
	assert.Equal(t, "12-29", results[0].Answer)
	assert.Equal(t, 1.0, results[0].Score)
}

func TestResolveProfileEmployment(t *testing.T) {
	results := resolveProfile(fullTestProfile(), "Where do I work?")
	require.Len(t, results, 1)
	assert.Equal(t, "workInfo.employment", results[0].FieldPath)
	assert.Equal(t, "Software Engineer at Microsoft", results[0].Answer)
}

func TestResolveProfileLocation(t *testing.T) {
	results := resolveProfile(fullTestProfile(), "What city do I live in?")
	require.Len(t, results, 1)
	assert.Equal(t, "personalInfo.location", results[0].FieldPath)
	assert.Equal(t, "Seattle, WA", results[0].Answer)
}

func TestResolveProfileFamily(t *testing.T) {
	results := resolveProfile(fullTestProfile(), "Who are my kids?")
	require.Len(t, results, 1)
	assert.Equal(t, "familyInfo.members", results[0].FieldPath)
	assert.Equal(t, "Emma (daughter)", results[0].Answer)
}

func TestResolveProfileServiceProviderByKind(t *testing.T) {
	results := resolveProfile(fullTestProfile(), "Who is my dentist?")
	require.Len(t, results, 1)
	assert.Equal(t, "serviceProviders.dentist", results[0].FieldPath)
	assert.Equal(t, "Dr. Smith (Aspen Dental)", results[0].Answer)
}

func TestResolveProfileValueScan(t *testing.T) {
	// No employment keyword, but the stored company name appears in the query.
	results := resolveProfile(fullTestProfile(), "How long have I been at Microsoft?")
	require.Len(t, results, 1)
	assert.Equal(t, "workInfo.employment", results[0].FieldPath)
}

func TestResolveProfileDeduplicatesFieldHits(t *testing.T) {
	// Both the keyword rule and the value scan point at employment; one hit.
	results := resolveProfile(fullTestProfile(), "Do I still work at Microsoft?")
	require.Len(t, results, 1)
	assert.Equal(t, "workInfo.employment", results[0].FieldPath)
}

func TestResolveProfileEmptyFieldsYieldNothing(t *testing.T) {
	empty := &types.Profile{OwnerID: "owner-1"}
	assert.Empty(t, resolveProfile(empty, "When is my birthday?"))
	assert.Empty(t, resolveProfile(empty, "Where do I work?"))
	assert.Empty(t, resolveProfile(nil, "Where do I work?"))
}

func TestResolveProfileUnrelatedQuery(t *testing.T) {
	assert.Empty(t, resolveProfile(fullTestProfile(), "What did we discuss yesterday?"))
}
