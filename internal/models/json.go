package models

import (
	"encoding/json"
	"fmt"
)

// EncodeStrings marshals a string slice for storage in a JSON column.
// Nil encodes as an empty array so columns never hold SQL NULL vs "" mixes.
func EncodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("models: encode string list: %w", err)
	}
	return string(data), nil
}

// DecodeStrings unmarshals a JSON column back to a string slice.
// Empty column text decodes to an empty slice.
func DecodeStrings(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("models: decode string list: %w", err)
	}
	return values, nil
}

// EncodeMap marshals an arbitrary structured payload for a JSON column.
func EncodeMap(values map[string]interface{}) (string, error) {
	if values == nil {
		values = map[string]interface{}{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("models: encode map: %w", err)
	}
	return string(data), nil
}

// DecodeMap unmarshals a JSON column back to a map.
func DecodeMap(raw string) (map[string]interface{}, error) {
	if raw == "" {
		return map[string]interface{}{}, nil
	}
	var values map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("models: decode map: %w", err)
	}
	return values, nil
}
