package data

import "fmt"

// NodeTree is a node with its children, used for exporting and importing
// parts of the hierarchy. ParentID of children is implied by their position
// in the tree.
type NodeTree struct {
	Node     `yaml:",inline"`
	Children []NodeTree `json:"children,omitempty" yaml:"children,omitempty"`
}

func (nt NodeTree) String() string {
	return nt.string("")
}

func (nt NodeTree) string(indent string) string {
	id, _ := nt.GetID()
	typ, _ := nt.GetType()
	ret := fmt.Sprintf("%v%v (%v) %v\n", indent, nt.Desc(), typ, id)
	for _, c := range nt.Children {
		ret += c.string(indent + "  ")
	}

	return ret
}

// BuildTree builds the tree rooted at rootID from a flat list of nodes.
// Children are sorted by ID. Nodes not connected to rootID are ignored.
func BuildTree(nodes Nodes, rootID string) (NodeTree, error) {
	root, ok := nodes.Find(rootID)
	if !ok {
		return NodeTree{}, fmt.Errorf("%w: %v", ErrNodeNotFound, rootID)
	}

	children := make(map[string]Nodes)
	for _, n := range nodes {
		if p, ok := n.GetParentID(); ok {
			children[p] = append(children[p], n)
		}
	}

	// visited guards against cycles in the input list
	visited := make(map[string]bool)

	var build func(n Node) (NodeTree, error)
	build = func(n Node) (NodeTree, error) {
		id, _ := n.GetID()
		if visited[id] {
			return NodeTree{}, fmt.Errorf("%w: %v", ErrParentCycle, id)
		}
		visited[id] = true

		ret := NodeTree{Node: n}
		c := children[id]
		c.Sort()
		for _, child := range c {
			ct, err := build(child)
			if err != nil {
				return NodeTree{}, err
			}
			ret.Children = append(ret.Children, ct)
		}

		return ret, nil
	}

	return build(root)
}

// Flatten returns the tree as a list of nodes in top-down order. ParentID
// of every child is set to the ID of the node that contains it. The
// ParentID of the top node is set to parentID, nil leaves it unchanged.
func (nt NodeTree) Flatten(parentID *string) Nodes {
	var ret Nodes

	var walk func(t NodeTree, parent *string)
	walk = func(t NodeTree, parent *string) {
		n := t.Node.Copy()
		if parent != nil {
			n.SetParentID(parent)
		}
		ret = append(ret, n)
		for _, c := range t.Children {
			walk(c, n.ID)
		}
	}

	walk(nt, parentID)

	return ret
}
