package access

import (
	"github.com/google/uuid"

	"github.com/orgtasks/backend/internal/models"
)

// Hierarchy is a read-only view of one organization snapshot, indexed by parent.
// Build a new one per snapshot; it never refetches.
type Hierarchy struct {
	nodes    map[uuid.UUID]struct{}
	children map[uuid.UUID][]uuid.UUID
}

// NewHierarchy indexes the snapshot. Nodes whose parent is absent from the
// snapshot are still reachable from that parent id, but never from a root.
func NewHierarchy(snapshot []models.Organization) *Hierarchy {
	h := &Hierarchy{
		nodes:    make(map[uuid.UUID]struct{}, len(snapshot)),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, org := range snapshot {
		h.nodes[org.ID] = struct{}{}
		if org.ParentID != nil {
			h.children[*org.ParentID] = append(h.children[*org.ParentID], org.ID)
		}
	}
	return h
}

// Contains reports whether id is present in the snapshot.
func (h *Hierarchy) Contains(id uuid.UUID) bool {
	_, ok := h.nodes[id]
	return ok
}

// Children returns the direct children of id in snapshot order.
func (h *Hierarchy) Children(id uuid.UUID) []uuid.UUID {
	return h.children[id]
}

// IsDescendant reports whether nodeID is reachable from ancestorID through
// one or more child links. It is strict: a node is not its own descendant.
func (h *Hierarchy) IsDescendant(ancestorID, nodeID uuid.UUID) bool {
	if ancestorID == nodeID {
		return false
	}
	found := false
	h.walk(ancestorID, func(id uuid.UUID) bool {
		if id == nodeID {
			found = true
			return false
		}
		return true
	})
	return found
}

// DescendantIDs returns every id reachable below rootID in breadth-first
// order, rootID excluded. A rootID with no children in the snapshot yields nil.
func (h *Hierarchy) DescendantIDs(rootID uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	h.walk(rootID, func(id uuid.UUID) bool {
		out = append(out, id)
		return true
	})
	return out
}

// walk visits descendants of rootID breadth-first, each id at most once.
// A parent cycle in a corrupt snapshot ends the walk at the first repeat,
// so the result is whatever was reachable before the loop closed.
// visit returns false to stop early.
func (h *Hierarchy) walk(rootID uuid.UUID, visit func(uuid.UUID) bool) {
	visited := map[uuid.UUID]struct{}{rootID: {}}
	queue := []uuid.UUID{rootID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range h.children[current] {
			if _, seen := visited[child]; seen {
				continue
			}
			visited[child] = struct{}{}
			if !visit(child) {
				return
			}
			queue = append(queue, child)
		}
	}
}

// IsDescendant is a one-shot helper over a raw snapshot.
func IsDescendant(ancestorID, nodeID uuid.UUID, snapshot []models.Organization) bool {
	return NewHierarchy(snapshot).IsDescendant(ancestorID, nodeID)
}

// DescendantIDs is a one-shot helper over a raw snapshot.
func DescendantIDs(rootID uuid.UUID, snapshot []models.Organization) []uuid.UUID {
	return NewHierarchy(snapshot).DescendantIDs(rootID)
}
