package status

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// FormatYAML renders a record summary as YAML.
func FormatYAML(s *RecordSummary) ([]byte, error) {
	return yaml.Marshal(s)
}

// FormatJSON renders a record summary as indented JSON.
func FormatJSON(s *RecordSummary) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
