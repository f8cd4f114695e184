package engine

import (
	"context"

	"github.com/recollect-ai/recollect/internal/llm"
	"github.com/recollect-ai/recollect/pkg/types"
)

// ProfileExtractor turns PROFILE-classified content into a structured patch
// against the owner's profile.
type ProfileExtractor interface {
	Extract(ctx context.Context, content string, subtype string) (*types.ProfilePatch, error)
}

// LLMProfileExtractor extracts profile fields with a single model completion.
// Only fields the model explicitly returned end up in the patch; unparseable
// dates drop the individual field rather than failing the extraction.
type LLMProfileExtractor struct {
	generator llm.TextGenerator
	retry     llm.RetryConfig
}

// NewLLMProfileExtractor creates an extractor backed by the given text
// generator.
func NewLLMProfileExtractor(generator llm.TextGenerator) *LLMProfileExtractor {
	return &LLMProfileExtractor{generator: generator, retry: llm.DefaultRetryConfig}
}

// Extract sends the profile extraction prompt and converts the reply into a
// patch. An empty patch (nothing confidently extracted) is a valid result.
func (e *LLMProfileExtractor) Extract(ctx context.Context, content string, subtype string) (*types.ProfilePatch, error) {
	prompt := llm.ProfileExtractionPrompt(content, subtype)

	var completion *llm.Completion
	err := llm.Retry(ctx, e.retry, func() error {
		var callErr error
		completion, callErr = e.generator.Complete(ctx, prompt)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	parsed, err := llm.ParseProfileResponse(completion.Text)
	if err != nil {
		return nil, err
	}

	return patchFromResponse(parsed), nil
}

// patchFromResponse maps the raw extraction response onto a ProfilePatch.
func patchFromResponse(resp *llm.ProfileResponse) *types.ProfilePatch {
	patch := &types.ProfilePatch{}

	pi := &types.PersonalInfoPatch{
		Name:    resp.Name,
		City:    resp.City,
		State:   resp.State,
		Country: resp.Country,
	}
	if resp.DateOfBirth != nil {
		pi.DateOfBirth = ParseProfileDate(*resp.DateOfBirth)
	}
	if pi.Name != nil || pi.DateOfBirth != nil || pi.City != nil || pi.State != nil || pi.Country != nil {
		patch.PersonalInfo = pi
	}

	wi := &types.WorkInfoPatch{
		Company:  resp.Company,
		Position: resp.Position,
		Skills:   resp.Skills,
	}
	if resp.StartDate != nil {
		wi.StartDate = ParseProfileDate(*resp.StartDate)
	}
	if wi.Company != nil || wi.Position != nil || wi.StartDate != nil || len(wi.Skills) > 0 {
		patch.WorkInfo = wi
	}

	if resp.Spouse != nil || len(resp.FamilyMembers) > 0 {
		patch.FamilyInfo = &types.FamilyInfoPatch{
			Spouse:  resp.Spouse,
			Members: resp.FamilyMembers,
		}
	}

	if len(resp.ServiceProviders) > 0 {
		patch.ServiceProviders = make(map[string]types.ServiceProvider, len(resp.ServiceProviders))
		for _, sp := range resp.ServiceProviders {
			patch.ServiceProviders[sp.Kind] = types.ServiceProvider{
				Name:    sp.Name,
				Company: sp.Company,
			}
		}
	}

	return patch
}

// Compile-time assertion.
var _ ProfileExtractor = (*LLMProfileExtractor)(nil)
