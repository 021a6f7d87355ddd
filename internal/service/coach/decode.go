package coach

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lifemosaic/negotiator/internal/model"
)

// Extract recovers a JSON value from raw model output. The whole text is
// parsed first; failing that, the span from the first '{' to the last '}'
// inclusive is parsed. Anything else is ErrInvalidJSON.
func Extract(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, ErrInvalidJSON
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return v, nil
}

// Decode extracts an AnalysisResult from raw model output. The recovered value
// must satisfy the analysis contract; a well-formed object with missing or
// mistyped fields is rejected like unparseable text.
func Decode(raw string) (model.AnalysisResult, error) {
	v, err := Extract(raw)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	if err := model.CheckAnalysisResult(v); err != nil {
		return model.AnalysisResult{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	// Round-trip through JSON to move from the generic form to the struct.
	// The contract check already guarantees the types line up.
	b, err := json.Marshal(v)
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	var out model.AnalysisResult
	if err := json.Unmarshal(b, &out); err != nil {
		return model.AnalysisResult{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return out, nil
}
