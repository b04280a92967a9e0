package translation

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed glossary.yaml
var defaultGlossaryYAML []byte

// Term maps a Chinese term to its preferred Vietnamese rendering.
type Term struct {
	ZH string `yaml:"zh" json:"zh"`
	VI string `yaml:"vi" json:"vi"`
}

// Glossary is an ordered term list. Later entries for the same Chinese term
// replace earlier ones.
type Glossary struct {
	Terms []Term `yaml:"terms"`
}

// DefaultGlossary returns the built-in cultivation glossary.
func DefaultGlossary() Glossary {
	g, err := parseGlossary(defaultGlossaryYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded glossary: %v", err))
	}
	return g
}

// LoadGlossary returns the built-in glossary merged with the YAML file at
// path. An empty path yields the built-in glossary unchanged.
func LoadGlossary(path string) (Glossary, error) {
	base := DefaultGlossary()
	path = strings.TrimSpace(path)
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Glossary{}, fmt.Errorf("read glossary: %w", err)
	}
	override, err := parseGlossary(data)
	if err != nil {
		return Glossary{}, fmt.Errorf("parse glossary %s: %w", path, err)
	}
	return base.Merge(override), nil
}

func parseGlossary(data []byte) (Glossary, error) {
	var g Glossary
	if err := yaml.Unmarshal(data, &g); err != nil {
		return Glossary{}, err
	}
	cleaned := g.Terms[:0]
	for _, term := range g.Terms {
		term.ZH = strings.TrimSpace(term.ZH)
		term.VI = strings.TrimSpace(term.VI)
		if term.ZH == "" || term.VI == "" {
			continue
		}
		cleaned = append(cleaned, term)
	}
	g.Terms = cleaned
	return g, nil
}

// Merge returns g with other's terms layered on top.
func (g Glossary) Merge(other Glossary) Glossary {
	position := make(map[string]int, len(g.Terms)+len(other.Terms))
	merged := make([]Term, 0, len(g.Terms)+len(other.Terms))
	for _, term := range append(append([]Term(nil), g.Terms...), other.Terms...) {
		if idx, ok := position[term.ZH]; ok {
			merged[idx] = term
			continue
		}
		position[term.ZH] = len(merged)
		merged = append(merged, term)
	}
	return Glossary{Terms: merged}
}

// Relevant returns the terms that occur in any of texts, in glossary order.
func (g Glossary) Relevant(texts []string) []Term {
	joined := strings.Join(texts, "\n")
	var out []Term
	for _, term := range g.Terms {
		if strings.Contains(joined, term.ZH) {
			out = append(out, term)
		}
	}
	return out
}

func renderTerms(terms []Term) string {
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		parts = append(parts, term.ZH+" -> "+term.VI)
	}
	return strings.Join(parts, ", ")
}
