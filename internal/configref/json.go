package configref

import (
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// scanJSONFile extracts packaging entry points from package.json (the
// "scripts" and "bin" keys) using gjson's path queries -- a handful of
// known keys pulled out of an otherwise-irrelevant JSON document, without a
// full struct unmarshal. tsconfig.json carries no symbol-naming keys in
// this scanner's fixed key set, so it contributes no candidates but is
// still part of the scanned set per spec §6.
func scanJSONFile(path string) []Candidate {
	if filepath.Base(path) != "package.json" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	if !gjson.ValidBytes(data) {
		return nil
	}
	root := gjson.ParseBytes(data)

	var out []Candidate
	root.Get("scripts").ForEach(func(_, value gjson.Result) bool {
		out = append(out, candidatesFromString(value.String(), path)...)
		return true
	})

	bin := root.Get("bin")
	if bin.Type == gjson.String {
		out = append(out, candidatesFromString(bin.String(), path)...)
	} else if bin.IsObject() {
		bin.ForEach(func(_, value gjson.Result) bool {
			out = append(out, candidatesFromString(value.String(), path)...)
			return true
		})
	}

	return out
}
