package domain

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ProfileLabel names a profile code within one sequence. Stored content comes either as a
// bare string (name only) or as an object carrying a name and descriptive content; both
// forms decode into this record.
type ProfileLabel struct {
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
}

type labelObject struct {
	Name        string `json:"name" yaml:"name"`
	Nom         string `json:"nom" yaml:"nom"`
	Content     string `json:"content" yaml:"content"`
	Contenu     string `json:"contenu" yaml:"contenu"`
	Description string `json:"description" yaml:"description"`
}

func (o labelObject) label() ProfileLabel {
	return ProfileLabel{
		Name:    firstNonEmpty(o.Name, o.Nom),
		Content: firstNonEmpty(o.Content, o.Contenu, o.Description),
	}
}

// UnmarshalJSON accepts "Name" or {"name": "...", "content": "..."}.
func (l *ProfileLabel) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*l = ProfileLabel{Name: name}
		return nil
	}
	var obj labelObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("profile label: %w", err)
	}
	*l = obj.label()
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for content files.
func (l *ProfileLabel) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = ProfileLabel{Name: node.Value}
		return nil
	case yaml.MappingNode:
		var obj labelObject
		if err := node.Decode(&obj); err != nil {
			return fmt.Errorf("profile label: %w", err)
		}
		*l = obj.label()
		return nil
	default:
		return fmt.Errorf("profile label: unexpected yaml node kind %d", node.Kind)
	}
}

// ParseProfileLabels decodes a raw label map, e.g. a jsonb column. Empty input yields an empty map.
func ParseProfileLabels(raw []byte) (map[string]ProfileLabel, error) {
	labels := make(map[string]ProfileLabel)
	if len(raw) == 0 || string(raw) == "null" {
		return labels, nil
	}
	if err := json.Unmarshal(raw, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
