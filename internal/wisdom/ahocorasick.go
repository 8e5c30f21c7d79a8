package wisdom

// ahoCorasick is a minimal multi-pattern substring matcher built once at
// load time, per spec §4.3's performance contract ("back the substring
// search with a multi-pattern matcher ... built once at load"). No library
// in the retrieval pack provides Aho-Corasick matching, and the standard
// library's strings.Contains is linear per pattern -- with dozens of rule
// packs loaded this degrades to O(patterns * len(text)) per lookup, so a
// trie with failure links is built here instead of reaching for repeated
// strings.Contains calls. See DESIGN.md for why this is the one
// standard-library-only component in the tree.
type ahoCorasick struct {
	trie []acNode
}

type acNode struct {
	children map[byte]int
	fail     int
	output   []int // indices into the original patterns slice that end here
}

// newAhoCorasick builds a matcher over patterns. Empty patterns are
// skipped. The returned matcher is safe for concurrent read-only use.
func newAhoCorasick(patterns []string) *ahoCorasick {
	ac := &ahoCorasick{trie: []acNode{{children: make(map[byte]int)}}}
	for i, p := range patterns {
		if p == "" {
			continue
		}
		ac.insert(p, i)
	}
	ac.buildFailureLinks()
	return ac
}

func (ac *ahoCorasick) insert(pattern string, idx int) {
	cur := 0
	for i := 0; i < len(pattern); i++ {
		b := pattern[i]
		next, ok := ac.trie[cur].children[b]
		if !ok {
			ac.trie = append(ac.trie, acNode{children: make(map[byte]int)})
			next = len(ac.trie) - 1
			ac.trie[cur].children[b] = next
		}
		cur = next
	}
	ac.trie[cur].output = append(ac.trie[cur].output, idx)
}

func (ac *ahoCorasick) buildFailureLinks() {
	var queue []int
	root := &ac.trie[0]
	for _, next := range root.children {
		ac.trie[next].fail = 0
		queue = append(queue, next)
	}
	for len(queue) > 0 {
		curIdx := queue[0]
		queue = queue[1:]
		for b, next := range ac.trie[curIdx].children {
			queue = append(queue, next)
			failState := ac.trie[curIdx].fail
			for {
				if target, ok := ac.trie[failState].children[b]; ok && target != next {
					ac.trie[next].fail = target
					break
				}
				if failState == 0 {
					ac.trie[next].fail = 0
					break
				}
				failState = ac.trie[failState].fail
			}
			ac.trie[next].output = append(ac.trie[next].output, ac.trie[ac.trie[next].fail].output...)
		}
	}
}

// FindFirst returns the index (into the patterns slice passed to
// newAhoCorasick) of the first pattern found as a substring of text, and
// true, or (-1, false) if none matched.
func (ac *ahoCorasick) FindFirst(text string) (int, bool) {
	if len(ac.trie) <= 1 {
		return -1, false
	}
	state := 0
	for i := 0; i < len(text); i++ {
		b := text[i]
		for {
			if next, ok := ac.trie[state].children[b]; ok {
				state = next
				break
			}
			if state == 0 {
				break
			}
			state = ac.trie[state].fail
		}
		if len(ac.trie[state].output) > 0 {
			return ac.trie[state].output[0], true
		}
	}
	return -1, false
}
