package llm

import (
	"fmt"

	"github.com/recollect-ai/recollect/pkg/types"
)

// ClassificationPrompt generates a strict JSON-only prompt for three-way
// content classification. Tense and stability are the primary signals:
// durable biographical statements route to profile, completed events to
// memory, dated future events to experience. Ambiguous tense breaks toward
// memory, the safe default.
func ClassificationPrompt(text string, context types.Context) string {
	return fmt.Sprintf(`TASK: Classify a personal statement.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks.

KINDS (ONLY these 3):
- profile: durable self-description (employment, birthdate, residence, relationships, recurring service providers)
- memory: completed, time-bound event or experience (past tense)
- experience: dated or relatively-dated FUTURE event (explicit date, weekday, "next", "tomorrow", "upcoming")

DECISION RULES:
1. Tense and stability are the primary signals.
2. "My X is ..." / "I live/work ..." style durable facts -> profile
3. Past tense, completed event -> memory
4. Future date or relative future reference -> experience
5. If tense is ambiguous, choose memory.

REQUIRED JSON STRUCTURE:
Your response MUST start with { and end with }
{
  "kind": "profile",
  "confidence": 0.9,
  "reasoning": "one short sentence",
  "subtype": "employment"
}

VALIDATION (STRICT):
1. "kind" EXACTLY one of: profile|memory|experience
2. "confidence" 0.0-1.0
3. "subtype" is optional; use a single lowercase word (employment, birthday, residence, meeting, ...) or ""
4. No extra fields. No trailing commas. Valid JSON syntax.

STATEMENT CONTEXT: %s
STATEMENT:
%s

RESPOND WITH ONLY THE JSON OBJECT (nothing else):`, context, text)
}

// MetadataPrompt generates a strict JSON-only prompt deriving entities,
// keywords, memory type, importance, sentiment, and a summary from content.
func MetadataPrompt(text string, context types.Context, subtype string) string {
	subtypeLine := ""
	if subtype != "" {
		subtypeLine = "KNOWN SUBTYPE: " + subtype + "\n"
	}
	return fmt.Sprintf(`TASK: Extract metadata from a personal statement.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks.

REQUIRED JSON STRUCTURE:
{
  "entities": ["Sarah", "Microsoft"],
  "keywords": ["meeting", "project"],
  "memory_type": "experience",
  "importance": 5,
  "sentiment": 0.2,
  "summary": "One or two sentences."
}

VALIDATION (STRICT):
1. "entities": proper nouns mentioned (people, places, organizations); [] if none
2. "keywords": 3-8 lowercase salient words; [] if none
3. "memory_type" EXACTLY one of: fact|preference|experience|skill|relationship
4. "importance": integer 1-10 (10 = life-changing, 1 = trivial)
5. "sentiment": number -1.0 (very negative) to 1.0 (very positive)
6. "summary": one or two sentences, no more
7. No extra fields. No trailing commas. Valid JSON syntax.

STATEMENT CONTEXT: %s
%sSTATEMENT:
%s

RESPOND WITH ONLY THE JSON OBJECT (nothing else):`, context, subtypeLine, text)
}

// ProfileExtractionPrompt generates a strict JSON-only prompt extracting
// structured profile fields from a PROFILE-classified statement. The prompt
// instructs the model to include only fields it is confident about; omitted
// fields leave the stored profile untouched.
func ProfileExtractionPrompt(text string, subtype string) string {
	subtypeLine := ""
	if subtype != "" {
		subtypeLine = "LIKELY SECTION: " + subtype + "\n"
	}
	return fmt.Sprintf(`TASK: Extract durable profile facts from a personal statement.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks.

POSSIBLE FIELDS (include ONLY fields the statement clearly states):
{
  "name": "Alex Smith",
  "date_of_birth": "December 29",
  "city": "Seattle",
  "state": "WA",
  "country": "USA",
  "company": "Microsoft",
  "position": "Engineer",
  "start_date": "March 2021",
  "skills": ["Go"],
  "spouse": "Jamie",
  "family_members": [{"name": "Emma", "relation": "daughter"}],
  "service_providers": [{"kind": "dentist", "name": "Dr. Chen", "company": "Smile Clinic"}]
}

VALIDATION (STRICT):
1. OMIT every field the statement does not clearly state. Do NOT guess.
2. An empty object {} is a valid answer.
3. Dates as spoken ("December 29th", "1990-12-29") are fine.
4. "service_providers" kind is a lowercase noun: doctor, dentist, mechanic, ...
5. No extra fields. No trailing commas. Valid JSON syntax.

%sSTATEMENT:
%s

RESPOND WITH ONLY THE JSON OBJECT (nothing else):`, subtypeLine, text)
}
