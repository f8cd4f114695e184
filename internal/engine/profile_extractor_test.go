package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recollect-ai/recollect/pkg/types"
)

func TestLLMProfileExtractorEmployment(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{
		"company": "Microsoft",
		"position": "Software Engineer",
		"start_date": "March 2021"
	}`}}
	e := NewLLMProfileExtractor(gen)

	patch, err := e.Extract(context.Background(), "I started working at Microsoft as a software engineer in March 2021", "employment")
	require.NoError(t, err)
	require.NotNil(t, patch.WorkInfo)

	assert.Equal(t, "Microsoft", *patch.WorkInfo.Company)
	assert.Equal(t, "Software Engineer", *patch.WorkInfo.Position)
	require.NotNil(t, patch.WorkInfo.StartDate)
	assert.Equal(t, types.Date{Year: 2021, Month: time.March, Day: 1}, *patch.WorkInfo.StartDate)

	assert.Nil(t, patch.PersonalInfo)
	assert.Nil(t, patch.FamilyInfo)
}

func TestLLMProfileExtractorBirthdayWithoutYear(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"date_of_birth": "December 29th"}`}}
	e := NewLLMProfileExtractor(gen)

	patch, err := e.Extract(context.Background(), "My birthday is December 29th", "")
	require.NoError(t, err)
	require.NotNil(t, patch.PersonalInfo)
	require.NotNil(t, patch.PersonalInfo.DateOfBirth)

	assert.Equal(t, 0, patch.PersonalInfo.DateOfBirth.Year)
	assert.Equal(t, time.December, patch.PersonalInfo.DateOfBirth.Month)
	assert.Equal(t, 29, patch.PersonalInfo.DateOfBirth.Day)
}

func TestLLMProfileExtractorDropsUnparseableDate(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"name": "Alex", "date_of_birth": "a while ago"}`}}
	e := NewLLMProfileExtractor(gen)

	patch, err := e.Extract(context.Background(), "content", "")
	require.NoError(t, err)
	require.NotNil(t, patch.PersonalInfo)

	// The bad date drops; the name survives.
	assert.Nil(t, patch.PersonalInfo.DateOfBirth)
	assert.Equal(t, "Alex", *patch.PersonalInfo.Name)
}

func TestLLMProfileExtractorFamilyAndProviders(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{
		"spouse": "Jamie",
		"family_members": [{"name": "Emma", "relation": "daughter"}, {"name": "", "relation": "son"}],
		"service_providers": [{"kind": "dentist", "name": "Dr. Smith", "company": "Aspen Dental"}]
	}`}}
	e := NewLLMProfileExtractor(gen)

	patch, err := e.Extract(context.Background(), "content", "")
	require.NoError(t, err)
	require.NotNil(t, patch.FamilyInfo)

	assert.Equal(t, "Jamie", *patch.FamilyInfo.Spouse)
	// The nameless member was dropped by the parser.
	require.Len(t, patch.FamilyInfo.Members, 1)
	assert.Equal(t, "Emma", patch.FamilyInfo.Members[0].Name)

	require.Contains(t, patch.ServiceProviders, "dentist")
	assert.Equal(t, "Dr. Smith", patch.ServiceProviders["dentist"].Name)
	assert.Equal(t, "Aspen Dental", patch.ServiceProviders["dentist"].Company)
}

func TestLLMProfileExtractorEmptyPatch(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{}`}}
	e := NewLLMProfileExtractor(gen)

	patch, err := e.Extract(context.Background(), "nothing durable here", "")
	require.NoError(t, err)
	assert.True(t, patch.IsZero())
}

func TestLLMProfileExtractorParseErrorPropagates(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"not json at all"}}
	e := NewLLMProfileExtractor(gen)

	_, err := e.Extract(context.Background(), "content", "")
	assert.Error(t, err)
}
