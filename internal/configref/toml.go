package configref

import (
	"github.com/BurntSushi/toml"
)

// scanTOMLFile extracts packaging entry points from pyproject.toml's
// [project.scripts] and [tool.poetry.scripts] tables -- the two
// conventional locations for console-script entry points in the Python
// packaging ecosystem.
func scanTOMLFile(path string) []Candidate {
	var doc map[string]interface{}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil
	}

	var out []Candidate
	if project, ok := doc["project"].(map[string]interface{}); ok {
		out = append(out, scriptsTableCandidates(project["scripts"], path)...)
		out = append(out, scriptsTableCandidates(project["entry-points"], path)...)
	}
	if tool, ok := doc["tool"].(map[string]interface{}); ok {
		if poetry, ok := tool["poetry"].(map[string]interface{}); ok {
			out = append(out, scriptsTableCandidates(poetry["scripts"], path)...)
		}
	}
	return out
}

func scriptsTableCandidates(v interface{}, sourceFile string) []Candidate {
	table, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	var out []Candidate
	for _, target := range table {
		if s, ok := target.(string); ok {
			out = append(out, candidatesFromString(s, sourceFile)...)
		}
		if nested, ok := target.(map[string]interface{}); ok {
			out = append(out, scriptsTableCandidates(nested, sourceFile)...)
		}
	}
	return out
}
