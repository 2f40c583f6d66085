// Package overrides builds the umbrella chart's values tree from KV entries.
//
// Every service named in the manifest, plus the "global" scope, owns the KV
// entries under its name. An entry key is a "/"-delimited path and its value
// is the text of the leaf at that path:
//
//	sessions/replicas      -> 2
//	sessions/image/tag     -> v1.4.0
//	global/domain          -> example.com
//
// becomes
//
//	global:
//	  domain: example.com
//	sessions:
//	  image:
//	    tag: v1.4.0
//	  replicas: "2"
package overrides

import (
	"sort"

	"gopkg.in/yaml.v3"
)

// Kind tags a Tree as a leaf or an interior node.
type Kind int

const (
	// KindNode maps path segments to subtrees.
	KindNode Kind = iota

	// KindLeaf holds a text value.
	KindLeaf
)

func (k Kind) String() string {
	if k == KindLeaf {
		return "leaf"
	}
	return "node"
}

// Tree is either a Leaf holding text or a Node holding children.
// The zero value is an empty Node.
type Tree struct {
	kind     Kind
	text     string
	children map[string]*Tree
}

// Leaf returns a leaf holding text.
func Leaf(text string) *Tree {
	return &Tree{kind: KindLeaf, text: text}
}

// Node returns an empty interior node.
func Node() *Tree {
	return &Tree{kind: KindNode, children: make(map[string]*Tree)}
}

// Kind reports whether t is a leaf or a node.
func (t *Tree) Kind() Kind {
	return t.kind
}

// IsLeaf reports whether t is a leaf.
func (t *Tree) IsLeaf() bool {
	return t.kind == KindLeaf
}

// Text returns the value of a leaf, or "" for a node.
func (t *Tree) Text() string {
	return t.text
}

// Child returns the subtree stored under segment.
func (t *Tree) Child(segment string) (*Tree, bool) {
	child, ok := t.children[segment]
	return child, ok
}

// Lookup walks path from t and returns the subtree at its end.
func (t *Tree) Lookup(path ...string) (*Tree, bool) {
	cur := t
	for _, seg := range path {
		next, ok := cur.Child(seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Keys returns the child segments of a node in sorted order.
func (t *Tree) Keys() []string {
	keys := make([]string, 0, len(t.children))
	for k := range t.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of direct children.
func (t *Tree) Len() int {
	return len(t.children)
}

// Insert records text at path, creating nodes for every segment but the
// last. A leaf found part-way down the path was written by a shorter key;
// it is replaced by an empty node and its value is discarded. Whatever sits
// at the final segment is replaced by the new leaf.
//
// Insert on a leaf turns the leaf into an empty node first.
func (t *Tree) Insert(path []string, text string) {
	if len(path) == 0 {
		return
	}
	if t.kind == KindLeaf || t.children == nil {
		t.kind = KindNode
		t.text = ""
		t.children = make(map[string]*Tree)
	}
	insert(t, path, text)
}

func insert(node *Tree, path []string, text string) {
	seg := path[0]
	if len(path) == 1 {
		node.children[seg] = Leaf(text)
		return
	}

	child, ok := node.children[seg]
	switch {
	case !ok:
		child = Node()
		node.children[seg] = child
	case child.kind == KindLeaf:
		child = Node()
		node.children[seg] = child
	}

	insert(child, path[1:], text)
}

// Equal reports whether t and other hold the same structure and text.
func (t *Tree) Equal(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.kind != other.kind {
		return false
	}
	if t.kind == KindLeaf {
		return t.text == other.text
	}
	if len(t.children) != len(other.children) {
		return false
	}
	for k, child := range t.children {
		o, ok := other.children[k]
		if !ok || !child.Equal(o) {
			return false
		}
	}
	return true
}

// ToMap converts t into plain Go values: a leaf becomes a string and a node
// becomes a map[string]any. It is the shape templates expect.
func (t *Tree) ToMap() any {
	if t.kind == KindLeaf {
		return t.text
	}
	m := make(map[string]any, len(t.children))
	for k, child := range t.children {
		m[k] = child.ToMap()
	}
	return m
}

// MarshalYAML renders a leaf as a string scalar and a node as a mapping
// with keys in sorted order.
func (t *Tree) MarshalYAML() (any, error) {
	return t.yamlNode(), nil
}

func (t *Tree) yamlNode() *yaml.Node {
	if t.kind == KindLeaf {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t.text}
	}

	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range t.Keys() {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			t.children[k].yamlNode(),
		)
	}
	return m
}
