// Package domain defines the business logic for the directory service.
package domain

import (
	"context"
	"strings"
)

// MaxActivityDepth caps the taxonomy at three levels. The schema carries
// a matching CHECK constraint, but the insertion path is the enforcement
// point the rest of the system relies on.
const MaxActivityDepth = 3

// Hierarchy owns the activity taxonomy: descendant closures, depth-checked
// inserts and the nested tree view.
type Hierarchy struct {
	repo  ActivityRepository
	cache TreeCache
}

// NewHierarchy constructs a Hierarchy. cache may be nil.
func NewHierarchy(repo ActivityRepository, cache TreeCache) *Hierarchy {
	return &Hierarchy{repo: repo, cache: cache}
}

// ExpandDescendants returns the closed id set {id} plus every transitive
// descendant, discovered breadth-first via children-of-parent lookups.
// The depth invariant bounds the walk at two hops below the start node.
func (h *Hierarchy) ExpandDescendants(ctx context.Context, id int64) ([]int64, error) {
	activity, err := h.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, NotFoundByID("activity", id)
	}

	closure := []int64{id}
	frontier := []int64{id}
	for len(frontier) > 0 {
		var next []int64
		for _, parentID := range frontier {
			children, err := h.repo.ChildrenOf(ctx, parentID)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				closure = append(closure, child.ID)
				next = append(next, child.ID)
			}
		}
		frontier = next
	}
	return closure, nil
}

// InsertActivityInput captures the payload for taxonomy inserts.
type InsertActivityInput struct {
	Name     string
	ParentID *int64
}

// InsertActivity creates a taxonomy node. The level is derived from the
// parent chain; an insert that would exceed MaxActivityDepth is rejected
// before any row is written.
func (h *Hierarchy) InsertActivity(ctx context.Context, input InsertActivityInput) (*Activity, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, Validation("name is required")
	}

	level := 1
	if input.ParentID != nil {
		parent, err := h.repo.Get(ctx, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, NotFoundByID("activity", *input.ParentID)
		}
		level = parent.Level + 1
		if level > MaxActivityDepth {
			return nil, Validation("activity nesting is limited to %d levels", MaxActivityDepth)
		}
	}

	created, err := h.repo.Insert(ctx, Activity{Name: name, ParentID: input.ParentID, Level: level})
	if err != nil {
		return nil, err
	}
	if h.cache != nil {
		// Best effort: a stale tree is served until the TTL expires.
		_ = h.cache.Invalidate(ctx)
	}
	return created, nil
}

// BuildTree returns the full forest as nested nodes, rooted at activities
// without a parent. Siblings are ordered by id ascending.
func (h *Hierarchy) BuildTree(ctx context.Context) ([]*ActivityNode, error) {
	if h.cache != nil {
		if forest, err := h.cache.Get(ctx); err == nil && forest != nil {
			return forest, nil
		}
	}

	activities, err := h.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	forest := assembleForest(activities)

	if h.cache != nil {
		_ = h.cache.Set(ctx, forest)
	}
	return forest, nil
}

// GetSubtree returns the node for id with its descendants nested below it.
func (h *Hierarchy) GetSubtree(ctx context.Context, id int64) (*ActivityNode, error) {
	activities, err := h.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	nodes := indexNodes(activities)
	node, ok := nodes[id]
	if !ok {
		return nil, NotFoundByID("activity", id)
	}
	return node, nil
}

// ListActivities returns a flat page of activities, optionally filtered
// by level (0 means all levels).
func (h *Hierarchy) ListActivities(ctx context.Context, level int, page PageRequest) ([]Activity, error) {
	if level < 0 || level > MaxActivityDepth {
		return nil, Validation("level must be between 1 and %d", MaxActivityDepth)
	}
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}
	return h.repo.List(ctx, level, page)
}

// assembleForest links a flat id-ordered slice into nested nodes. The
// parent relation stays a plain id; only the view layer carries child
// pointers.
func assembleForest(activities []Activity) []*ActivityNode {
	nodes := indexNodes(activities)
	roots := make([]*ActivityNode, 0)
	for _, a := range activities {
		if a.ParentID == nil {
			roots = append(roots, nodes[a.ID])
		}
	}
	return roots
}

func indexNodes(activities []Activity) map[int64]*ActivityNode {
	nodes := make(map[int64]*ActivityNode, len(activities))
	for _, a := range activities {
		a := a
		nodes[a.ID] = &ActivityNode{Activity: a, Children: []*ActivityNode{}}
	}
	for _, a := range activities {
		if a.ParentID == nil {
			continue
		}
		if parent, ok := nodes[*a.ParentID]; ok {
			parent.Children = append(parent.Children, nodes[a.ID])
		}
	}
	return nodes
}
