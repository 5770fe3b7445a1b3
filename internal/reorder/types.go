package reorder

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Family identifies one of the ordered catalogs kept by the store.
type Family string

const (
	FamilyStages    Family = "stages"
	FamilyOptions   Family = "options"
	FamilyBuildings Family = "buildings"
)

// Valid reports whether f names a known catalog.
func (f Family) Valid() bool {
	return f == FamilyStages || f == FamilyOptions || f == FamilyBuildings
}

// Scoped reports whether the family's collections live under a village.
func (f Family) Scoped() bool { return f == FamilyBuildings }

// Key identifies a single ordered collection: the top-level list of a family
// (ParentID empty) or the children of one parent. Village is set for scoped
// families only.
type Key struct {
	Family   Family
	Village  string
	ParentID string
}

// TopLevel reports whether the key addresses the family's top-level list.
func (k Key) TopLevel() bool { return k.ParentID == "" }

// Top returns the key of the top-level list k belongs to.
func (k Key) Top() Key { return Key{Family: k.Family, Village: k.Village} }

// Child returns the key of parentID's children.
func (k Key) Child(parentID string) Key {
	return Key{Family: k.Family, Village: k.Village, ParentID: parentID}
}

// Validate checks the family and that a village is given exactly when the
// family is scoped.
func (k Key) Validate() error {
	switch {
	case !k.Family.Valid():
		return fmt.Errorf("unknown family %q", k.Family)
	case k.Family.Scoped() && k.Village == "":
		return fmt.Errorf("%s need a village", k.Family)
	case !k.Family.Scoped() && k.Village != "":
		return fmt.Errorf("%s are not kept per village", k.Family)
	}
	return nil
}

func (k Key) String() string {
	s := string(k.Family)
	if k.Village != "" {
		s += "@" + k.Village
	}
	if !k.TopLevel() {
		s += "/" + k.ParentID
	}
	return s
}

// Item is one member of a collection as last seen from the store.
type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Desc     string `json:"desc,omitempty"`
	Position int    `json:"position"`
	Deleted  bool   `json:"deleted"`
}

// UpdatePayload is the full replace-style body the store expects on update.
type UpdatePayload struct {
	Name     string  `json:"name"`
	Desc     *string `json:"desc,omitempty"`
	Deleted  bool    `json:"deleted"`
	Position int     `json:"position"`
}

// Store is the remote collection the coordinator persists to.
type Store interface {
	// List returns the canonical members of the collection in any order.
	List(ctx context.Context, key Key) ([]Item, error)

	// Update replaces the item's fields, moving it to payload.Position.
	Update(ctx context.Context, key Key, id string, payload UpdatePayload) error
}

// PendingReorder is an optimistic move that has been applied locally and is
// waiting for the user to confirm or cancel it.
type PendingReorder struct {
	Key           Key
	MovedID       string
	Moved         Item
	SourceIndex   int
	InsertAt      int
	PreviousOrder []Item
	NewOrder      []Item
}

// TargetIndex is the clamped index the item was moved to.
func (p *PendingReorder) TargetIndex() int { return p.InsertAt }

// Payload builds the update body for the moved item. The store rejects updates
// without a name, so an empty snapshot name fails here instead of on the wire.
func (p *PendingReorder) Payload() (UpdatePayload, error) {
	name := strings.TrimSpace(p.Moved.Name)
	if name == "" {
		return UpdatePayload{}, &ValidationError{
			Key:     p.Key,
			ItemID:  p.MovedID,
			Message: "reorder failed: item must have a name locally, edit the item name before reordering",
		}
	}

	payload := UpdatePayload{
		Name:     name,
		Deleted:  p.Moved.Deleted,
		Position: p.InsertAt,
	}
	if p.Moved.Desc != "" {
		desc := p.Moved.Desc
		payload.Desc = &desc
	}
	return payload, nil
}

// Summary renders the confirmation prompt shown to the user.
func (p *PendingReorder) Summary() string {
	label := p.Moved.Name
	if label == "" {
		label = p.MovedID
	}
	return fmt.Sprintf("Move %q to position %d in %s?", label, p.InsertAt, p.Key)
}

// DragPayload travels with a drag gesture so a drop can still resolve its
// source when the coordinator's transient drag state was lost.
type DragPayload struct {
	Key         Key
	SourceIndex int
}

// Encode renders the payload as the plain-text form carried by drag events.
func (d DragPayload) Encode() string {
	return fmt.Sprintf("%s|%s|%s|%d", d.Key.Family, d.Key.Village, d.Key.ParentID, d.SourceIndex)
}

// ParseDragPayload decodes a value produced by DragPayload.Encode.
func ParseDragPayload(s string) (DragPayload, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 4 {
		return DragPayload{}, fmt.Errorf("drag payload %q: expected 4 fields", s)
	}
	idx, err := strconv.Atoi(parts[3])
	if err != nil {
		return DragPayload{}, fmt.Errorf("drag payload %q: source index: %w", s, err)
	}
	key := Key{Family: Family(parts[0]), Village: parts[1], ParentID: parts[2]}
	if err := key.Validate(); err != nil {
		return DragPayload{}, fmt.Errorf("drag payload %q: %w", s, err)
	}
	return DragPayload{Key: key, SourceIndex: idx}, nil
}

// State is the coordinator's view of one collection.
type State int

const (
	StateIdle State = iota
	StateDragging
	StatePendingConfirmation
	StateConfirming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StatePendingConfirmation:
		return "pending_confirmation"
	case StateConfirming:
		return "confirming"
	default:
		return "unknown"
	}
}
