package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/recollect-ai/recollect/pkg/types"
)

// ClassificationResponse is the parsed shape of a classification completion.
type ClassificationResponse struct {
	Kind       string  `json:"kind"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
	Subtype    string  `json:"subtype,omitempty"`
}

// MetadataResponse is the parsed shape of a metadata extraction completion.
type MetadataResponse struct {
	Entities   []string `json:"entities"`
	Keywords   []string `json:"keywords"`
	MemoryType string   `json:"memory_type"`
	Importance int      `json:"importance"`
	Sentiment  float64  `json:"sentiment"`
	Summary    string   `json:"summary"`
}

// ProfileResponse is the parsed shape of a profile extraction completion.
// All fields are optional; dates are raw strings resolved by the caller.
type ProfileResponse struct {
	Name             *string                   `json:"name,omitempty"`
	DateOfBirth      *string                   `json:"date_of_birth,omitempty"`
	City             *string                   `json:"city,omitempty"`
	State            *string                   `json:"state,omitempty"`
	Country          *string                   `json:"country,omitempty"`
	Company          *string                   `json:"company,omitempty"`
	Position         *string                   `json:"position,omitempty"`
	StartDate        *string                   `json:"start_date,omitempty"`
	Skills           []string                  `json:"skills,omitempty"`
	Spouse           *string                   `json:"spouse,omitempty"`
	FamilyMembers    []types.FamilyMember      `json:"family_members,omitempty"`
	ServiceProviders []ServiceProviderResponse `json:"service_providers,omitempty"`
}

// ServiceProviderResponse is one extracted recurring service provider.
type ServiceProviderResponse struct {
	Kind    string `json:"kind"`
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
}

// extractJSON extracts the first complete JSON object from a string that may
// contain extra text. This handles models that add explanations or markdown
// fences around the JSON despite instructions.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return text // no JSON found; let the parser fail with the raw text
	}

	braceCount := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		char := text[i]

		if escape {
			escape = false
			continue
		}
		if char == '\\' {
			escape = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			switch char {
			case '{':
				braceCount++
			case '}':
				braceCount--
				if braceCount == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	return text // no complete JSON object found
}

// ParseClassificationResponse parses a classification completion and
// validates the kind and confidence range. Returns a *ParseError on
// malformed JSON or an invalid kind; callers convert that into their own
// typed failure rather than defaulting the routing decision.
func ParseClassificationResponse(raw string) (*ClassificationResponse, error) {
	cleanJSON := extractJSON(raw)

	var resp ClassificationResponse
	if err := json.Unmarshal([]byte(cleanJSON), &resp); err != nil {
		return nil, newParseError("classification", raw, err)
	}

	resp.Kind = strings.ToLower(strings.TrimSpace(resp.Kind))
	if !types.IsValidContentKind(types.ContentKind(resp.Kind)) {
		return nil, newParseError("classification", raw,
			fmt.Errorf("invalid kind %q (must be one of: profile, memory, experience)", resp.Kind))
	}

	resp.Confidence = types.ClampConfidence(resp.Confidence)
	return &resp, nil
}

// ParseMetadataResponse parses a metadata extraction completion. Importance
// and sentiment are clamped to their declared ranges regardless of what the
// model returned; an unknown memory type degrades to "fact". Returns a
// *ParseError only when the JSON itself is malformed — the caller resolves
// that via its deterministic fallback, never by raising.
func ParseMetadataResponse(raw string) (*MetadataResponse, error) {
	cleanJSON := extractJSON(raw)

	var resp MetadataResponse
	if err := json.Unmarshal([]byte(cleanJSON), &resp); err != nil {
		return nil, newParseError("metadata", raw, err)
	}

	resp.Importance = types.ClampImportance(resp.Importance)
	resp.Sentiment = types.ClampSentiment(resp.Sentiment)

	resp.MemoryType = strings.ToLower(strings.TrimSpace(resp.MemoryType))
	if !types.IsValidMemoryType(types.MemoryType(resp.MemoryType)) {
		resp.MemoryType = string(types.MemoryTypeFact)
	}

	if resp.Entities == nil {
		resp.Entities = []string{}
	}
	if resp.Keywords == nil {
		resp.Keywords = []string{}
	}

	return &resp, nil
}

// ParseProfileResponse parses a profile extraction completion. Entries
// without a usable value are dropped rather than failing the whole patch.
// Returns a *ParseError only when the JSON itself is malformed.
func ParseProfileResponse(raw string) (*ProfileResponse, error) {
	cleanJSON := extractJSON(raw)

	var resp ProfileResponse
	if err := json.Unmarshal([]byte(cleanJSON), &resp); err != nil {
		return nil, newParseError("profile", raw, err)
	}

	// Drop family members and providers without a name/kind; a later
	// extraction never blanks a stored field, so partial entries are noise.
	members := resp.FamilyMembers[:0]
	for _, m := range resp.FamilyMembers {
		if strings.TrimSpace(m.Name) != "" {
			members = append(members, m)
		}
	}
	resp.FamilyMembers = members

	providers := resp.ServiceProviders[:0]
	for _, sp := range resp.ServiceProviders {
		sp.Kind = strings.ToLower(strings.TrimSpace(sp.Kind))
		if sp.Kind != "" && (sp.Name != "" || sp.Company != "") {
			providers = append(providers, sp)
		}
	}
	resp.ServiceProviders = providers

	return &resp, nil
}
