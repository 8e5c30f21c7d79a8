package mutate

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/ghrammr/janitor/pkg/types"
)

// pyFromImportLine matches "from X import a, b as c, d" plus its line break.
var pyFromImportLine = regexp.MustCompile(`(?m)^([ \t]*from\s+\S+\s+import\s+)(.+)$\n?`)

// pyPlainImportLine matches "import a, b" plus its line break.
var pyPlainImportLine = regexp.MustCompile(`(?m)^([ \t]*import\s+)(.+)$\n?`)

// tsNamedImportLine matches "import { a, b } from 'x'".
var tsNamedImportLine = regexp.MustCompile(`(?m)^([ \t]*import\s*\{)([^}]*)(\}\s*from\s*['"][^'"]+['"];?)\s*$`)

// sweepOrphanImports removes, from each import line, any imported name
// that is (a) in removedNames and (b) not referenced anywhere else in the
// buffer. An import line left with no surviving names is removed
// entirely. Only the two dialects this engine analyzes are handled.
func sweepOrphanImports(buf []byte, removedNames map[string]bool, lang types.Language) []byte {
	if len(removedNames) == 0 {
		return buf
	}
	switch lang {
	case types.LangPython:
		return sweepPythonImports(buf, removedNames)
	case types.LangTypeScript:
		return sweepTSImports(buf, removedNames)
	default:
		return buf
	}
}

func sweepPythonImports(buf []byte, removedNames map[string]bool) []byte {
	buf = rewriteImportLines(buf, pyFromImportLine, removedNames, ",")
	buf = rewriteImportLines(buf, pyPlainImportLine, removedNames, ",")
	return buf
}

func sweepTSImports(buf []byte, removedNames map[string]bool) []byte {
	lines := strings.Split(string(buf), "\n")
	var out []string
	for _, line := range lines {
		m := tsNamedImportLine.FindStringSubmatch(line)
		if m == nil {
			out = append(out, line)
			continue
		}
		prefix, names, suffix := m[1], m[2], m[3]
		survivors := filterNames(names, removedNames, buf, ",")
		if len(survivors) == 0 {
			continue
		}
		out = append(out, prefix+" "+strings.Join(survivors, ", ")+" "+suffix)
	}
	return []byte(strings.Join(out, "\n"))
}

// rewriteImportLines applies a (prefix, names) regex to every matching
// line, dropping removed-and-unreferenced names and the whole line if none
// survive.
func rewriteImportLines(buf []byte, re *regexp.Regexp, removedNames map[string]bool, sep string) []byte {
	return re.ReplaceAllFunc(buf, func(line []byte) []byte {
		m := re.FindSubmatch(line)
		if m == nil {
			return line
		}
		prefix, names := string(m[1]), string(m[2])
		survivors := filterNames(names, removedNames, buf, sep)
		if len(survivors) == 0 {
			return nil
		}
		lineBreak := line[len(m[1])+len(m[2]):]
		return []byte(prefix + strings.Join(survivors, ", ") + string(lineBreak))
	})
}

// filterNames splits names on sep, drops entries that name a removed
// symbol with no remaining reference in buf, and returns the survivors in
// original order.
func filterNames(names string, removedNames map[string]bool, buf []byte, sep string) []string {
	var survivors []string
	for _, raw := range strings.Split(names, sep) {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		bound := name
		if idx := strings.Index(name, " as "); idx >= 0 {
			bound = strings.TrimSpace(name[idx+len(" as "):])
		}
		if removedNames[bound] && bytes.Count(buf, []byte(bound)) <= 1 {
			continue
		}
		survivors = append(survivors, name)
	}
	return survivors
}
