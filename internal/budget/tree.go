package budget

import "github.com/shopspring/decimal"

// Node is a category or a subcategory in a Tree. Subcategories keep a
// reference to the category they belong to.
type Node struct {
	ID        string
	Name      string
	MinAmount decimal.Decimal
	Parent    *Node
	Children  []*Node

	children map[string]*Node
}

// Key identifies the node uniquely within its tree. Subcategory ids only
// need to be unique inside their category, so the key is qualified with
// the parent id.
func (n *Node) Key() string {
	if n.Parent == nil {
		return n.ID
	}
	return n.Parent.Key() + "/" + n.ID
}

// Child returns the direct child with the given id.
func (n *Node) Child(id string) (*Node, bool) {
	c, ok := n.children[id]
	return c, ok
}

// Tree is the category hierarchy of a session.
type Tree struct {
	Roots []*Node

	roots map[string]*Node
}

// NewTree builds the tree for a list of categories, keeping their order.
func NewTree(categories []Category) *Tree {
	t := &Tree{
		roots: make(map[string]*Node, len(categories)),
	}

	for _, c := range categories {
		root := &Node{
			ID:        c.ID,
			Name:      c.Name,
			MinAmount: c.MinAmount,
			children:  make(map[string]*Node, len(c.Subcategories)),
		}

		for _, s := range c.Subcategories {
			child := &Node{
				ID:        s.ID,
				Name:      s.Name,
				MinAmount: s.MinAmount,
				Parent:    root,
			}
			root.Children = append(root.Children, child)
			root.children[s.ID] = child
		}

		t.Roots = append(t.Roots, root)
		t.roots[c.ID] = root
	}

	return t
}

// Category returns the top level node for a category id.
func (t *Tree) Category(id string) (*Node, bool) {
	n, ok := t.roots[id]
	return n, ok
}

// amounts maps node keys to the amount a single vote assigned to them.
type amounts map[string]decimal.Decimal

// index flattens the allocations of a vote into node keys. Allocations for
// ids that are not part of the tree are ignored. Repeated allocations for
// the same node are summed.
func (t *Tree) index(v Vote) amounts {
	idx := amounts{}
	for _, a := range v.Allocations {
		n, ok := t.Category(a.CategoryID)
		if !ok {
			continue
		}
		idx[n.Key()] = idx[n.Key()].Add(a.Amount)

		for _, s := range a.SubAllocations {
			child, ok := n.Child(s.SubcategoryID)
			if !ok {
				continue
			}
			idx[child.Key()] = idx[child.Key()].Add(s.Amount)
		}
	}
	return idx
}

// median returns the median amount for a node over all indexed votes.
// A vote without an allocation for the node counts as zero.
func (n *Node) median(votes []amounts) decimal.Decimal {
	values := make([]decimal.Decimal, 0, len(votes))
	for _, v := range votes {
		values = append(values, v[n.Key()])
	}
	return Median(values)
}
