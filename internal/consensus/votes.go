package consensus

import (
	"encoding/json"
	"fmt"
)

func encodeVotes(v VoteSummary) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("consensus: encode votes: %w", err)
	}
	return string(data), nil
}

func decodeVotes(raw string) (VoteSummary, error) {
	var v VoteSummary
	if raw == "" {
		return v, nil
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("consensus: decode votes: %w", err)
	}
	return v, nil
}
