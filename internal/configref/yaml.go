package configref

import (
	"os"

	"gopkg.in/yaml.v3"
)

// extractKeys names the YAML keys whose string values name a symbol, per
// spec §4.4.
var extractKeys = map[string]bool{
	"handler": true,
	"command": true,
}

func (s *Scanner) scanYAMLFile(path string) []Candidate {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil
	}

	var out []Candidate
	walkYAMLNode(&doc, path, &out)
	return out
}

// walkYAMLNode recursively visits every mapping in the document, emitting
// candidates for any value under a key in extractKeys.
func walkYAMLNode(node *yaml.Node, sourceFile string, out *[]Candidate) {
	if node == nil {
		return
	}
	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range node.Content {
			walkYAMLNode(c, sourceFile, out)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			if extractKeys[keyNode.Value] && valNode.Kind == yaml.ScalarNode {
				*out = append(*out, candidatesFromString(valNode.Value, sourceFile)...)
			}
			walkYAMLNode(valNode, sourceFile, out)
		}
	}
}
