package substr

// Scanner is a multi-pattern substring searcher backed by a byte-level
// Aho-Corasick automaton. One pass over the input decides whether any
// registered pattern occurs, so the cost stays linear no matter how many
// patterns are loaded. Failure links are rebuilt lazily after mutation.
type Scanner struct {
	root        *node
	patterns    int
	constructed bool
}

type node struct {
	children map[byte]*node
	fail     *node
	// word marks a pattern ending exactly at this node; output is word
	// folded with the failure chain, recomputed on every build.
	word   bool
	output bool
}

func newNode() *node {
	return &node{children: make(map[byte]*node)}
}

// NewScanner creates an empty scanner.
func NewScanner() *Scanner {
	return &Scanner{root: newNode()}
}

// Add registers a pattern and reports whether it was not present before.
func (s *Scanner) Add(pattern string) bool {
	if pattern == "" {
		return false
	}
	cur := s.root
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		child, ok := cur.children[ch]
		if !ok {
			child = newNode()
			cur.children[ch] = child
		}
		cur = child
	}
	if cur.word {
		return false
	}
	cur.word = true
	s.patterns++
	s.constructed = false
	return true
}

// Remove unregisters a pattern and reports whether it was present. Nodes
// stay allocated; only the terminal marker is cleared.
func (s *Scanner) Remove(pattern string) bool {
	if pattern == "" {
		return false
	}
	cur := s.root
	for i := 0; i < len(pattern); i++ {
		child, ok := cur.children[pattern[i]]
		if !ok {
			return false
		}
		cur = child
	}
	if !cur.word {
		return false
	}
	cur.word = false
	s.patterns--
	s.constructed = false
	return true
}

// Len returns the number of registered patterns.
func (s *Scanner) Len() int {
	return s.patterns
}

func (s *Scanner) build() {
	queue := make([]*node, 0, len(s.root.children))
	s.root.output = s.root.word
	for _, child := range s.root.children {
		child.fail = s.root
		child.output = child.word
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for ch, child := range cur.children {
			fail := cur.fail
			for fail != nil && fail.children[ch] == nil {
				fail = fail.fail
			}
			if fail == nil {
				child.fail = s.root
			} else {
				child.fail = fail.children[ch]
			}
			child.output = child.word || child.fail.output
			queue = append(queue, child)
		}
	}
	s.constructed = true
}

// Contains reports whether any registered pattern occurs in text.
func (s *Scanner) Contains(text string) bool {
	if s.patterns == 0 {
		return false
	}
	if !s.constructed {
		s.build()
	}
	cur := s.root
	for i := 0; i < len(text); i++ {
		ch := text[i]
		for cur != s.root && cur.children[ch] == nil {
			cur = cur.fail
		}
		if next := cur.children[ch]; next != nil {
			cur = next
		} else {
			cur = s.root
		}
		if cur.output {
			return true
		}
	}
	return false
}
