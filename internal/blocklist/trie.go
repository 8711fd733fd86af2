package blocklist

import "strings"

// node is one edge-label's worth of the trie. children is a small growable
// slice rather than a map: per-node fan-out is small in practice and a
// linear scan over a handful of entries beats a hash lookup at this scale.
type node struct {
	label    string
	terminal bool
	children []*node
}

func (n *node) child(label string) *node {
	for _, c := range n.children {
		if c.label == label {
			return c
		}
	}
	return nil
}

func (n *node) childOrCreate(label string) *node {
	if c := n.child(label); c != nil {
		return c
	}
	c := &node{label: label}
	n.children = append(n.children, c)
	return c
}

// Trie is a reverse-label suffix trie: a terminal node at the path
// com -> example marks example.com and every subdomain of it as blocked.
// The zero value is a ready-to-use empty trie.
type Trie struct {
	root node
}

// New returns an empty trie.
func New() *Trie {
	return &Trie{}
}

// Insert adds domain to the trie. domain is normalised first; a domain that
// fails normalisation is reported to the caller via the returned error and
// is not inserted. Re-inserting an already-blocked path is a no-op.
func (t *Trie) Insert(domain string) error {
	norm, err := Normalize(domain)
	if err != nil {
		return err
	}

	cur := &t.root
	for _, label := range reverseLabels(norm) {
		cur = cur.childOrCreate(label)
	}
	cur.terminal = true
	return nil
}

// Blocked reports whether name or any of its parent domains is blocked. A
// name that fails normalisation is treated as not blocked, matching a
// lookup against a name that simply is not in the trie.
func (t *Trie) Blocked(name string) bool {
	norm, err := Normalize(name)
	if err != nil {
		return false
	}

	cur := &t.root
	for _, label := range reverseLabels(norm) {
		cur = cur.child(label)
		if cur == nil {
			return false
		}
		if cur.terminal {
			return true
		}
	}
	return false
}

// reverseLabels splits a normalised domain into its dot-separated labels
// and reverses them, so "a.b.example.com" walks as ["com", "example", "b",
// "a"] - top-level label first, matching the trie's root-to-leaf order.
func reverseLabels(domain string) []string {
	labels := strings.Split(domain, ".")
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return labels
}
