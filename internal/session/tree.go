package session

import (
	"github.com/rebeliceyang/sequel/internal/models"
)

// treeEntry is one arena slot. Children are stored as ids; no entry knows its parent.
type treeEntry struct {
	name     string
	typ      string
	loaded   bool
	children []models.NodeID
}

// objectTree is an indexed arena of database objects for the active
// connection and database. Ids are handed out from a counter that is never
// reset, so an id from a cleared forest can not alias a newer node.
type objectTree struct {
	nodes  map[models.NodeID]*treeEntry
	roots  []models.NodeID
	active models.NodeID
	nextID models.NodeID
}

func newObjectTree() objectTree {
	return objectTree{nodes: make(map[models.NodeID]*treeEntry)}
}

func (t *objectTree) clear() {
	t.nodes = make(map[models.NodeID]*treeEntry)
	t.roots = nil
	t.active = 0
}

// replaceRoots discards the forest and loads nodes as the new roots
func (t *objectTree) replaceRoots(nodes []models.DatabaseObjectNode) {
	t.clear()
	for _, n := range nodes {
		t.roots = append(t.roots, t.insert(n))
	}
}

// appendChildren adds nodes after the existing children of parent.
// Calling it twice with the same nodes yields two copies.
func (t *objectTree) appendChildren(parent models.NodeID, nodes []models.DatabaseObjectNode) error {
	entry, ok := t.nodes[parent]
	if !ok {
		return ErrUnknownNode
	}
	for _, n := range nodes {
		entry.children = append(entry.children, t.insert(n))
	}
	entry.loaded = true
	return nil
}

func (t *objectTree) insert(n models.DatabaseObjectNode) models.NodeID {
	t.nextID++
	id := t.nextID

	entry := &treeEntry{name: n.Name, typ: n.Type, loaded: len(n.Children) > 0}
	t.nodes[id] = entry
	for _, child := range n.Children {
		entry.children = append(entry.children, t.insert(child))
	}
	return id
}

func (t *objectTree) has(id models.NodeID) bool {
	_, ok := t.nodes[id]
	return ok
}

// object rebuilds the wire form of a node, children included, for use as
// the parent of a fetch.
func (t *objectTree) object(id models.NodeID) (models.DatabaseObjectNode, bool) {
	entry, ok := t.nodes[id]
	if !ok {
		return models.DatabaseObjectNode{}, false
	}
	obj := models.DatabaseObjectNode{
		Name:     entry.name,
		Type:     entry.typ,
		Children: make([]models.DatabaseObjectNode, 0, len(entry.children)),
	}
	for _, childID := range entry.children {
		if child, ok := t.object(childID); ok {
			obj.Children = append(obj.Children, child)
		}
	}
	return obj, true
}

// view returns a detached copy of the forest
func (t *objectTree) view() []*models.TreeNode {
	forest := make([]*models.TreeNode, 0, len(t.roots))
	for _, id := range t.roots {
		forest = append(forest, t.viewNode(id))
	}
	return forest
}

func (t *objectTree) viewNode(id models.NodeID) *models.TreeNode {
	entry := t.nodes[id]
	node := &models.TreeNode{
		ID:       id,
		Name:     entry.name,
		Type:     entry.typ,
		Loaded:   entry.loaded,
		Children: make([]*models.TreeNode, 0, len(entry.children)),
	}
	for _, childID := range entry.children {
		node.Children = append(node.Children, t.viewNode(childID))
	}
	return node
}
