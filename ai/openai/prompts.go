package openai

import (
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/yqlguard/ai"
)

const filterResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "apps": {
      "type": "array",
      "items": {"type": "string"}
    },
    "entities": {
      "type": "array",
      "items": {"type": "string"}
    },
    "after": {
      "type": "string",
      "pattern": "^([0-9]{4}-[0-9]{2}-[0-9]{2})?$"
    },
    "before": {
      "type": "string",
      "pattern": "^([0-9]{4}-[0-9]{2}-[0-9]{2})?$"
    },
    "query": {
      "type": "string"
    }
  },
  "required": ["apps", "entities", "after", "before", "query"],
  "additionalProperties": false
}`

const filterPromptTemplate = `You turn workplace search requests into structured filters and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Today is %s.

Rules:
- "apps" lists the applications the user wants results from. Use only these names: %s.
- "entities" lists people, teams, customers or projects the request is about, as written by the user.
- "after" and "before" are inclusive dates in YYYY-MM-DD form. Resolve relative dates against today. Use "" when the request has no time constraint.
- "query" is the request with the app, entity and time phrases removed. Use "" if nothing remains.
- Include only constraints the request states or clearly implies. Do not hallucinate.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "slack messages from ada about the budget last week"
Today is 2025-03-12 (Wednesday).
Output:
{"apps":["slack"],"entities":["ada"],"after":"2025-03-03","before":"2025-03-09","query":"budget"}

Example:
Input: "onboarding checklist"
Output:
{"apps":[],"entities":[],"after":"","before":"","query":"onboarding checklist"}

Example:
Input: "emails from acme corp since january"
Today is 2025-03-12 (Wednesday).
Output:
{"apps":["gmail","outlook"],"entities":["acme corp"],"after":"2025-01-01","before":"","query":""}`

// buildSystemPrompt creates the system prompt for a request issued at now.
func buildSystemPrompt(now time.Time) string {
	return fmt.Sprintf(filterPromptTemplate,
		filterResponseSchema,
		now.Format("2006-01-02 (Monday)"),
		strings.Join(ai.KnownApps, ", "))
}
