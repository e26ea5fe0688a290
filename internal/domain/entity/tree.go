package entity

import "strings"

// NodeID indexes a node inside its arena. The snapshot tree is stored as an
// arena rather than a linked structure: nodes hold child indices only, and
// parent context is reconstructed on demand from the arena when needed.
type NodeID int

type Attr struct {
	Name  string
	Value string
}

// TreeNode is one element of a parsed UI snapshot. Attributes keep document
// order so serialized fragments are deterministic.
type TreeNode struct {
	Tag      string
	Attrs    []Attr
	Children []NodeID
}

// Attr returns the value of the named attribute, or "" when absent.
func (n *TreeNode) Attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

func (n *TreeNode) HasAttr(name string) bool {
	for _, a := range n.Attrs {
		if a.Name == name {
			return true
		}
	}
	return false
}

// NodeArena owns every node of one parsed snapshot.
type NodeArena struct {
	nodes []TreeNode
	roots []NodeID
}

func NewNodeArena() *NodeArena {
	return &NodeArena{}
}

// Add appends a node and returns its id. Parent/child links are established
// separately via AppendChild or AddRoot.
func (a *NodeArena) Add(tag string, attrs []Attr) NodeID {
	a.nodes = append(a.nodes, TreeNode{Tag: tag, Attrs: attrs})
	return NodeID(len(a.nodes) - 1)
}

func (a *NodeArena) AppendChild(parent, child NodeID) {
	a.nodes[parent].Children = append(a.nodes[parent].Children, child)
}

func (a *NodeArena) AddRoot(id NodeID) {
	a.roots = append(a.roots, id)
}

func (a *NodeArena) Node(id NodeID) *TreeNode {
	return &a.nodes[id]
}

func (a *NodeArena) Roots() []NodeID {
	return a.roots
}

func (a *NodeArena) Len() int {
	return len(a.nodes)
}

// Walk visits every node in document order.
func (a *NodeArena) Walk(fn func(id NodeID, n *TreeNode)) {
	var visit func(id NodeID)
	visit = func(id NodeID) {
		fn(id, &a.nodes[id])
		for _, c := range a.nodes[id].Children {
			visit(c)
		}
	}
	for _, r := range a.roots {
		visit(r)
	}
}

// signatureAttrs participate in the dedup signature, in this fixed order.
var signatureAttrs = []string{"resource-id", "id", "name", "text", "content-desc", "label"}

// Signature builds a dedup key for a node: two candidates with equal
// signatures refer to the same UI element even when different discovery
// passes produced them.
func (a *NodeArena) Signature(id NodeID) string {
	n := a.Node(id)
	parts := []string{n.Tag}
	for _, attr := range signatureAttrs {
		if n.HasAttr(attr) {
			parts = append(parts, attr+":"+n.Attr(attr))
		}
	}
	if n.HasAttr("bounds") {
		parts = append(parts, n.Attr("bounds"))
	}
	return strings.Join(parts, "|")
}
