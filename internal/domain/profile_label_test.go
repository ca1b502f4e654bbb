package domain

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestProfileLabelDecodesBothJSONForms(t *testing.T) {
	raw := []byte(`{"A":"Sécurité","B":{"name":"Prudence","content":"Tu gardes la main."},"C":{"nom":"Équilibre","contenu":"Outil."}}`)
	labels, err := ParseProfileLabels(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if labels["A"] != (ProfileLabel{Name: "Sécurité"}) {
		t.Fatalf("unexpected A label %+v", labels["A"])
	}
	if labels["B"] != (ProfileLabel{Name: "Prudence", Content: "Tu gardes la main."}) {
		t.Fatalf("unexpected B label %+v", labels["B"])
	}
	if labels["C"] != (ProfileLabel{Name: "Équilibre", Content: "Outil."}) {
		t.Fatalf("unexpected C label %+v", labels["C"])
	}
}

func TestParseProfileLabelsEmpty(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte("null")} {
		labels, err := ParseProfileLabels(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if len(labels) != 0 {
			t.Fatalf("expected empty map, got %v", labels)
		}
	}
}

func TestProfileLabelRejectsNumbers(t *testing.T) {
	var l ProfileLabel
	if err := json.Unmarshal([]byte(`42`), &l); err == nil {
		t.Fatalf("expected error for numeric label")
	}
}

func TestProfileLabelDecodesYAML(t *testing.T) {
	doc := []byte(`
A: Sécurité
D:
  name: Liberté
  description: Levier de choix.
`)
	var labels map[string]ProfileLabel
	if err := yaml.Unmarshal(doc, &labels); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if labels["A"].Name != "Sécurité" || labels["A"].Content != "" {
		t.Fatalf("unexpected A label %+v", labels["A"])
	}
	if labels["D"] != (ProfileLabel{Name: "Liberté", Content: "Levier de choix."}) {
		t.Fatalf("unexpected D label %+v", labels["D"])
	}
}
