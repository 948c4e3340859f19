package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON unmarshals the JSON object embedded in an LLM response into
// T. Models routinely wrap the object in markdown fences or surround it
// with prose, so everything outside the outermost braces is discarded
// before decoding.
func ParseJSON[T any](response string) (T, error) {
	var out T

	open := strings.Index(response, "{")
	if open < 0 {
		return out, fmt.Errorf("response contains no JSON object: %q", truncate(response))
	}
	body := response[open:]
	if last := strings.LastIndex(response, "}"); last > open {
		body = response[open : last+1]
	}

	if err := json.Unmarshal([]byte(body), &out); err != nil {
		var zero T
		return zero, fmt.Errorf("decode JSON from response: %w (payload %q)", err, truncate(body))
	}
	return out, nil
}

func truncate(s string) string {
	const limit = 200
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
