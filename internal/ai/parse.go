package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON pulls the outermost JSON object out of raw model output.
// Models occasionally wrap the object in markdown code fences or surround it
// with commentary despite instructions; both are tolerated. Returns an error
// when no parseable object is present.
func ExtractJSON(raw string) ([]byte, error) {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		var kept []string
		for _, line := range strings.Split(text, "\n") {
			if strings.HasPrefix(line, "```") {
				continue
			}
			kept = append(kept, line)
		}
		text = strings.TrimSpace(strings.Join(kept, "\n"))
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	candidate := []byte(text[start : end+1])
	if !json.Valid(candidate) {
		return nil, fmt.Errorf("model output is not valid JSON")
	}
	return candidate, nil
}
