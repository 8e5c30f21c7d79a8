// Package wisdom loads the JSON rule packs that encode framework-specific
// "never delete this" knowledge (Qt slots, pytest fixtures, Django signal
// handlers, and the like) and answers is_immortal for the Dead-Symbol
// Pipeline (C8). Rule packs are grouped into a community tier (always
// loaded) and an optional premium tier, per spec §4.3.
package wisdom

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// immortalityRule is rule shape 1: a named framework heuristic keyed on
// either a decorator substring or a source-text syntax marker.
type immortalityRule struct {
	Framework string   `json:"framework"`
	Patterns  []string `json:"patterns"`
	Type      string   `json:"type"` // "decorator" | "syntax_marker"
	Action    string   `json:"action"`
}

// metaPatterns is rule shape 2: generic name/decorator/syntax-marker
// matching not tied to one framework.
type metaPatterns struct {
	ExactMatches   []string `json:"exact_matches"`
	SuffixMatches  []string `json:"suffix_matches"`
	PrefixMatches  []string `json:"prefix_matches"`
	SyntaxMarkers  []string `json:"syntax_markers"`
}

// frameworkKeyedEntry is one framework's entry in rule shape 3.
type frameworkKeyedEntry struct {
	SyntaxMarkers []string `json:"syntax_markers"`
}

// rulePackFile is the union JSON shape: a rule pack file contains any
// combination of the three shapes in spec §4.3, so every field is
// optional and absence is the normal case.
type rulePackFile struct {
	ImmortalityRules []immortalityRule              `json:"immortality_rules"`
	Meta             *metaPatterns                  `json:"meta"`
	Frameworks       map[string]frameworkKeyedEntry `json:"frameworks"`
}

type patternReason struct {
	pattern string
	reason  string
}

// Registry answers is_immortal queries, built once at load from every rule
// pack file found under the community and (optional) premium directories.
type Registry struct {
	exactNames    map[string]string // name -> reason
	prefixes      []patternReason
	suffixes      []patternReason
	decoratorPats []string
	decoratorRsn  []string
	decoratorAC   *ahoCorasick
	markerPats    []string
	markerRsn     []string
	markerAC      *ahoCorasick
}

// LoadDirs builds a Registry from every *.json file in communityDir
// (required to exist, but an empty/missing directory yields an empty,
// always-false registry rather than an error -- a project with no rule
// packs configured should still run) and premiumDir (skipped silently if
// it does not exist).
func LoadDirs(communityDir, premiumDir string) (*Registry, error) {
	var packs []rulePackFile

	communityPacks, err := loadPackDir(communityDir)
	if err != nil {
		return nil, fmt.Errorf("load community rule packs: %w", err)
	}
	packs = append(packs, communityPacks...)

	if premiumDir != "" {
		if _, err := os.Stat(premiumDir); err == nil {
			premiumPacks, err := loadPackDir(premiumDir)
			if err != nil {
				return nil, fmt.Errorf("load premium rule packs: %w", err)
			}
			packs = append(packs, premiumPacks...)
		}
	}

	return build(packs), nil
}

func loadPackDir(dir string) ([]rulePackFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var packs []rulePackFile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		var pack rulePackFile
		if err := json.Unmarshal(data, &pack); err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		packs = append(packs, pack)
	}
	return packs, nil
}

func build(packs []rulePackFile) *Registry {
	r := &Registry{exactNames: make(map[string]string)}

	for _, pack := range packs {
		for _, rule := range pack.ImmortalityRules {
			switch rule.Type {
			case "decorator":
				for _, p := range rule.Patterns {
					r.decoratorPats = append(r.decoratorPats, p)
					r.decoratorRsn = append(r.decoratorRsn, rule.Framework)
				}
			case "syntax_marker":
				for _, p := range rule.Patterns {
					r.markerPats = append(r.markerPats, p)
					r.markerRsn = append(r.markerRsn, rule.Framework)
				}
			}
		}

		if pack.Meta != nil {
			for _, n := range pack.Meta.ExactMatches {
				r.exactNames[n] = "meta-exact-match"
			}
			for _, n := range pack.Meta.PrefixMatches {
				r.prefixes = append(r.prefixes, patternReason{pattern: n, reason: "meta-prefix-match"})
			}
			for _, n := range pack.Meta.SuffixMatches {
				r.suffixes = append(r.suffixes, patternReason{pattern: n, reason: "meta-suffix-match"})
			}
			for _, n := range pack.Meta.SyntaxMarkers {
				r.markerPats = append(r.markerPats, n)
				r.markerRsn = append(r.markerRsn, "meta-syntax-marker")
			}
		}

		for framework, entry := range pack.Frameworks {
			for _, n := range entry.SyntaxMarkers {
				r.markerPats = append(r.markerPats, n)
				r.markerRsn = append(r.markerRsn, framework)
			}
		}
	}

	r.decoratorAC = newAhoCorasick(r.decoratorPats)
	r.markerAC = newAhoCorasick(r.markerPats)
	return r
}

// IsImmortal implements the §4.3 resolution order: exact name -> prefix
// (including the segment after the last "." in a qualified name) ->
// decorator substring -> suffix on any decorator line -> syntax marker ->
// dunder -> property/staticmethod/classmethod decorator. The first match
// wins and its reason is returned.
func (r *Registry) IsImmortal(name, qualifiedName, sourceText string, decorators []string) (string, bool) {
	if reason, ok := r.exactNames[name]; ok {
		return reason, true
	}

	lastSegment := name
	if idx := strings.LastIndex(qualifiedName, "."); idx >= 0 {
		lastSegment = qualifiedName[idx+1:]
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(name, p.pattern) || strings.HasPrefix(lastSegment, p.pattern) {
			return p.reason, true
		}
	}

	decoratorText := strings.Join(decorators, "\n")
	if idx, ok := r.decoratorAC.FindFirst(decoratorText); ok {
		return r.decoratorRsn[idx], true
	}

	for _, line := range decorators {
		for _, s := range r.suffixes {
			if strings.HasSuffix(line, s.pattern) {
				return s.reason, true
			}
		}
	}

	if idx, ok := r.markerAC.FindFirst(sourceText); ok {
		return r.markerRsn[idx], true
	}

	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") && len(name) > 4 {
		return "dunder", true
	}

	for _, d := range decorators {
		if strings.Contains(d, "@property") || strings.Contains(d, "@staticmethod") || strings.Contains(d, "@classmethod") {
			return "descriptor-decorator", true
		}
	}

	return "", false
}
