package domain

import "strings"

// Trie indexes blocked domains label-wise with the top-level label first, so
// an anchor shares its path prefix with every subdomain under it. Terminals
// are counted rather than flagged: several patterns may pin the same domain
// and the entry stays visible until the last one is removed.
type Trie struct {
	root *node
	size int
}

type node struct {
	children map[string]*node
	terminal int
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// NewTrie creates an empty domain index.
func NewTrie() *Trie {
	return &Trie{root: newNode()}
}

// Add indexes a domain and reports whether it was not visible before.
func (t *Trie) Add(domain string) bool {
	if domain == "" {
		return false
	}
	labels := strings.Split(domain, ".")
	cur := t.root
	for i := len(labels) - 1; i >= 0; i-- {
		label := labels[i]
		child, ok := cur.children[label]
		if !ok {
			child = newNode()
			cur.children[label] = child
		}
		cur = child
	}
	cur.terminal++
	if cur.terminal > 1 {
		return false
	}
	t.size++
	return true
}

// MatchSuffix walks host label by label and reports whether the host itself
// or any parent domain of it is indexed. The walk stops at the first
// terminal, so an ancestor anchor covers all of its subdomains. Matching is
// on label boundaries only: "tracker.com" covers "sub.tracker.com" but never
// "trackerx.com".
func (t *Trie) MatchSuffix(host string) bool {
	if host == "" {
		return false
	}
	labels := strings.Split(host, ".")
	cur := t.root
	for i := len(labels) - 1; i >= 0; i-- {
		child, ok := cur.children[labels[i]]
		if !ok {
			return false
		}
		cur = child
		if cur.terminal > 0 {
			return true
		}
	}
	return cur.terminal > 0
}

// Remove drops one reference to a domain and reports whether the domain
// became unindexed. The branch itself stays allocated; its size is bounded
// by what was inserted, not by lookup traffic.
func (t *Trie) Remove(domain string) bool {
	if domain == "" {
		return false
	}
	labels := strings.Split(domain, ".")
	cur := t.root
	for i := len(labels) - 1; i >= 0; i-- {
		child, ok := cur.children[labels[i]]
		if !ok {
			return false
		}
		cur = child
	}
	if cur.terminal == 0 {
		return false
	}
	cur.terminal--
	if cur.terminal > 0 {
		return false
	}
	t.size--
	return true
}

// Len returns the number of distinct indexed domains.
func (t *Trie) Len() int {
	return t.size
}
