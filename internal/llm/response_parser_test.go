package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recollect-ai/recollect/pkg/types"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain object",
			input:    `{"kind": "memory"}`,
			expected: `{"kind": "memory"}`,
		},
		{
			name:     "markdown fenced",
			input:    "```json\n{\"kind\": \"memory\"}\n```",
			expected: `{"kind": "memory"}`,
		},
		{
			name:     "surrounding prose",
			input:    `Sure! Here is the result: {"kind": "memory"} hope that helps`,
			expected: `{"kind": "memory"}`,
		},
		{
			name:     "nested braces",
			input:    `{"a": {"b": 1}} trailing`,
			expected: `{"a": {"b": 1}}`,
		},
		{
			name:     "braces inside strings",
			input:    `{"summary": "used } and { freely"}`,
			expected: `{"summary": "used } and { freely"}`,
		},
		{
			name:     "escaped quotes inside strings",
			input:    `{"summary": "she said \"hi\" {"}`,
			expected: `{"summary": "she said \"hi\" {"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSON(tt.input))
		})
	}
}

func TestParseClassificationResponse(t *testing.T) {
	resp, err := ParseClassificationResponse(`{"kind": "PROFILE", "confidence": 0.92, "subtype": "employment"}`)
	require.NoError(t, err)
	assert.Equal(t, "profile", resp.Kind)
	assert.InDelta(t, 0.92, resp.Confidence, 1e-9)
	assert.Equal(t, "employment", resp.Subtype)
}

func TestParseClassificationResponseClampsConfidence(t *testing.T) {
	resp, err := ParseClassificationResponse(`{"kind": "memory", "confidence": 1.7}`)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, resp.Confidence, 1e-9)
}

func TestParseClassificationResponseInvalidKind(t *testing.T) {
	_, err := ParseClassificationResponse(`{"kind": "opinion", "confidence": 0.9}`)
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "classification", pe.Op)
}

func TestParseClassificationResponseMalformed(t *testing.T) {
	_, err := ParseClassificationResponse(`the model refused to answer`)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseMetadataResponse(t *testing.T) {
	raw := `{"entities": ["Sarah", "Microsoft"], "keywords": ["meeting"], "memory_type": "experience", "importance": 6, "sentiment": 0.3, "summary": "Met Sarah."}`
	resp, err := ParseMetadataResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sarah", "Microsoft"}, resp.Entities)
	assert.Equal(t, "experience", resp.MemoryType)
	assert.Equal(t, 6, resp.Importance)
	assert.InDelta(t, 0.3, resp.Sentiment, 1e-9)
}

func TestParseMetadataResponseClampsAndDefaults(t *testing.T) {
	raw := `{"memory_type": "opinion", "importance": 99, "sentiment": -3.5, "summary": "s"}`
	resp, err := ParseMetadataResponse(raw)
	require.NoError(t, err)

	assert.Equal(t, string(types.MemoryTypeFact), resp.MemoryType)
	assert.Equal(t, 10, resp.Importance)
	assert.InDelta(t, -1.0, resp.Sentiment, 1e-9)
	assert.NotNil(t, resp.Entities)
	assert.NotNil(t, resp.Keywords)
	assert.Empty(t, resp.Entities)
}

func TestParseMetadataResponseMalformed(t *testing.T) {
	_, err := ParseMetadataResponse(`{"importance": `)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "metadata", pe.Op)
}

func TestParseProfileResponse(t *testing.T) {
	raw := `{"company": "Microsoft", "position": "Engineer", "family_members": [{"name": "Emma", "relation": "daughter"}, {"name": "", "relation": "son"}], "service_providers": [{"kind": "Dentist", "name": "Dr. Chen"}, {"kind": "", "name": "nobody"}, {"kind": "mechanic"}]}`
	resp, err := ParseProfileResponse(raw)
	require.NoError(t, err)

	require.NotNil(t, resp.Company)
	assert.Equal(t, "Microsoft", *resp.Company)

	// Nameless members and kindless/empty providers are dropped.
	require.Len(t, resp.FamilyMembers, 1)
	assert.Equal(t, "Emma", resp.FamilyMembers[0].Name)
	require.Len(t, resp.ServiceProviders, 1)
	assert.Equal(t, "dentist", resp.ServiceProviders[0].Kind)
}

func TestParseProfileResponseEmptyObject(t *testing.T) {
	resp, err := ParseProfileResponse(`{}`)
	require.NoError(t, err)
	assert.Nil(t, resp.Name)
	assert.Empty(t, resp.FamilyMembers)
}

func TestParseErrorTruncatesRaw(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	_, err := ParseMetadataResponse(string(long))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.LessOrEqual(t, len(pe.Raw), 200)
}
