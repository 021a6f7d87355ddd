package coach

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lifemosaic/negotiator/internal/service/reasoner"
)

// systemDirective fixes the persona, the response contract and the rule that
// every field must be filled even when the user gave little to go on.
const systemDirective = `You are a pragmatic life coach who weighs everyday decisions across money, health and the planet.
Give realistic estimates. When information is missing, make a sensible assumption and carry on; never ask a follow-up question.
Respond with ONLY one JSON object, no prose and no code fences, in exactly this shape:
{
  "query": "<the user's question>",
  "answer": "yes" | "no" | "maybe",
  "breakdown": {
    "cost_impact": {"immediate": <number, currency units>, "budget_pct": <number, percent of a typical weekly budget>, "opportunity_cost": "<what else the money could do>"},
    "health_impact": {"calories": <number>, "nutrition_quality": <number 1-10>, "wellness_change": <number -10..10>},
    "sustainability_impact": {"co2e_kg": <number>, "packaging_waste": "Low" | "Medium" | "High", "score_change": <number -10..10>}
  },
  "alternative": {
    "suggestion": "<a concrete cheaper, healthier or greener option>",
    "cost": <number>,
    "cost_saved": <number>,
    "calories": <number>,
    "health_improvement": <number>,
    "sustainability_improvement": <number>,
    "reasoning": "<one or two sentences>"
  },
  "final_recommendation": "<one or two sentences>"
}
Every field is required. Numbers must be plain JSON numbers.`

// AssemblePrompt builds the prompt for a query. Non-empty context is appended
// as compact JSON after a "Context:" marker. The query must not be blank; it
// is otherwise passed through verbatim.
func AssemblePrompt(query string, userContext map[string]any) (reasoner.Prompt, error) {
	if strings.TrimSpace(query) == "" {
		return reasoner.Prompt{}, ErrInvalidRequest
	}
	user := query
	if len(userContext) > 0 {
		ctxJSON, err := compactJSON(userContext)
		if err != nil {
			return reasoner.Prompt{}, fmt.Errorf("%w: context is not serializable: %v", ErrInvalidRequest, err)
		}
		user = query + "\n\nContext: " + ctxJSON
	}
	return reasoner.Prompt{System: systemDirective, User: user}, nil
}

// compactJSON encodes v without HTML escaping so user text such as "<" and
// "&" reaches the model unchanged. Map keys are sorted by encoding/json.
func compactJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
