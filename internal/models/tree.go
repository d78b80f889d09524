package models

// NodeID addresses a node held by the session's object tree.
// IDs are never reused within a session; 0 means no node.
type NodeID uint64

// TreeNode is a read-only view of one object tree node
type TreeNode struct {
	ID       NodeID
	Name     string
	Type     string
	Loaded   bool // children were fetched at least once
	Children []*TreeNode
}

// FlatNode is a visible node together with its depth
type FlatNode struct {
	Node  *TreeNode
	Depth int
}

// Flatten returns the visible nodes of a forest in display order.
// Children are included only for nodes that expanded reports as open.
func Flatten(forest []*TreeNode, expanded func(NodeID) bool) []FlatNode {
	result := make([]FlatNode, 0, len(forest))
	for _, n := range forest {
		result = n.flattenHelper(0, expanded, result)
	}
	return result
}

func (n *TreeNode) flattenHelper(depth int, expanded func(NodeID) bool, acc []FlatNode) []FlatNode {
	acc = append(acc, FlatNode{Node: n, Depth: depth})
	if expanded != nil && expanded(n.ID) {
		for _, child := range n.Children {
			acc = child.flattenHelper(depth+1, expanded, acc)
		}
	}
	return acc
}

// FindByID finds a node by ID (depth-first search)
func (n *TreeNode) FindByID(id NodeID) *TreeNode {
	if n.ID == id {
		return n
	}

	for _, child := range n.Children {
		if found := child.FindByID(id); found != nil {
			return found
		}
	}

	return nil
}

// FindInForest searches every root of a forest
func FindInForest(forest []*TreeNode, id NodeID) *TreeNode {
	for _, root := range forest {
		if found := root.FindByID(id); found != nil {
			return found
		}
	}
	return nil
}

// PathTo returns the names from a root down to the node with the given ID,
// or nil when the node is not in the forest.
func PathTo(forest []*TreeNode, id NodeID) []string {
	for _, root := range forest {
		if path := root.pathTo(id); path != nil {
			return path
		}
	}
	return nil
}

func (n *TreeNode) pathTo(id NodeID) []string {
	if n.ID == id {
		return []string{n.Name}
	}
	for _, child := range n.Children {
		if sub := child.pathTo(id); sub != nil {
			return append([]string{n.Name}, sub...)
		}
	}
	return nil
}

// ParentOf returns the node holding id as a direct child. Roots have no parent.
func ParentOf(forest []*TreeNode, id NodeID) *TreeNode {
	for _, root := range forest {
		if p := root.parentOf(id); p != nil {
			return p
		}
	}
	return nil
}

func (n *TreeNode) parentOf(id NodeID) *TreeNode {
	for _, child := range n.Children {
		if child.ID == id {
			return n
		}
		if p := child.parentOf(id); p != nil {
			return p
		}
	}
	return nil
}
