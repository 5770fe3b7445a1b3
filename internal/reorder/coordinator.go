package reorder

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

type dragState struct {
	key         Key
	sourceIndex int
}

type dropTarget struct {
	key   Key
	index int
}

// Coordinator stages reorders of store collections. A move is applied to the
// local copy at once and persisted only when confirmed; every persist attempt
// is followed by a reload so the local copy converges on the store's order.
//
// At most one reorder per collection is pending at a time. Collections are
// independent of each other, but only one drag gesture is tracked overall.
type Coordinator struct {
	store  Store
	logger *slog.Logger

	mu          sync.Mutex
	collections map[Key][]Item
	pending     map[Key]*PendingReorder
	confirming  map[Key]bool
	generations map[Key]uint64
	messages    map[Key]string
	locked      map[string]bool
	selectMode  bool
	drag        *dragState
	over        *dropTarget

	reloads singleflight.Group
}

// NewCoordinator creates a coordinator persisting to store
func NewCoordinator(store Store, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:       store,
		logger:      logger,
		collections: make(map[Key][]Item),
		pending:     make(map[Key]*PendingReorder),
		confirming:  make(map[Key]bool),
		generations: make(map[Key]uint64),
		messages:    make(map[Key]string),
		locked:      make(map[string]bool),
	}
}

// Load returns the cached collection, fetching it from the store on first use.
func (c *Coordinator) Load(ctx context.Context, key Key) ([]Item, error) {
	c.mu.Lock()
	items, ok := c.collections[key]
	c.mu.Unlock()
	if ok {
		return slices.Clone(items), nil
	}
	return c.Reload(ctx, key)
}

// Reload replaces the cached collection with the store's canonical order.
// Concurrent reloads of one collection share a single request. A reorder that
// is pending but not being confirmed is dropped: the fresh order wins.
// A listing that started before a confirm began is discarded when it lands,
// so it cannot overwrite the order the confirm reloaded.
func (c *Coordinator) Reload(ctx context.Context, key Key) ([]Item, error) {
	v, err, _ := c.reloads.Do(key.String(), func() (interface{}, error) {
		c.mu.Lock()
		gen := c.generations[key]
		c.mu.Unlock()

		items, err := c.store.List(ctx, key)
		if err != nil {
			return nil, err
		}
		sorted := SortByPosition(items)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generations[key] != gen {
			c.logger.Debug("stale reload discarded", "collection", key.String())
			return slices.Clone(c.collections[key]), nil
		}
		c.collections[key] = sorted
		if _, ok := c.pending[key]; ok && !c.confirming[key] {
			delete(c.pending, key)
			c.logger.Info("pending reorder dropped by reload", "collection", key.String())
		}
		return sorted, nil
	})
	if err != nil {
		c.logger.Warn("reload failed", "collection", key.String(), "error", err)
		return nil, fmt.Errorf("reload %s: %w", key, err)
	}
	return slices.Clone(v.([]Item)), nil
}

// Items returns a copy of the cached collection, nil if it was never loaded.
func (c *Coordinator) Items(key Key) []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.collections[key])
}

// Pending returns a copy of the collection's pending reorder.
func (c *Coordinator) Pending(key Key) (*PendingReorder, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[key]
	return clonePending(p), ok
}

// Message returns the last error surfaced for the collection, if any.
func (c *Coordinator) Message(key Key) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages[key]
}

// State reports where the collection is in the reorder lifecycle.
func (c *Coordinator) State(key Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.confirming[key]:
		return StateConfirming
	case c.pending[key] != nil:
		return StatePendingConfirmation
	case c.drag != nil && c.drag.key == key:
		return StateDragging
	default:
		return StateIdle
	}
}

// SetSelectMode toggles bulk selection. Entering select mode abandons any drag.
func (c *Coordinator) SetSelectMode(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectMode = on
	if on {
		c.clearDragLocked()
	}
}

// SetLocked marks a top-level item as expanded. Expanded items can be neither
// dragged nor dropped onto.
func (c *Coordinator) SetLocked(id string, locked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if locked {
		c.locked[id] = true
		return
	}
	delete(c.locked, id)
}

// Locked reports whether the item is expanded.
func (c *Coordinator) Locked(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locked[id]
}

// BeginDrag records the start of a drag gesture on the item at sourceIndex.
func (c *Coordinator) BeginDrag(key Key, sourceIndex int) (DragPayload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selectMode {
		return DragPayload{}, ErrSelectMode
	}
	if c.busyLocked(key) {
		return DragPayload{}, ErrReorderPending
	}
	items, ok := c.collections[key]
	if !ok {
		return DragPayload{}, fmt.Errorf("%s: %w", key, ErrNotLoaded)
	}
	if sourceIndex < 0 || sourceIndex >= len(items) {
		return DragPayload{}, fmt.Errorf("source %d of %d: %w", sourceIndex, len(items), ErrIndexOutOfRange)
	}
	if key.TopLevel() && c.locked[items[sourceIndex].ID] {
		return DragPayload{}, ErrItemLocked
	}

	c.drag = &dragState{key: key, sourceIndex: sourceIndex}
	c.over = nil
	return DragPayload{Key: key, SourceIndex: sourceIndex}, nil
}

// DragOver moves the drop indicator. It returns false when the hover is
// ignored: no drag, select mode, or a different collection.
func (c *Coordinator) DragOver(key Key, targetIndex int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.drag == nil || c.selectMode || c.drag.key != key {
		return false
	}
	c.over = &dropTarget{key: key, index: targetIndex}
	return true
}

// DropTarget returns the index currently under the drag indicator.
func (c *Coordinator) DropTarget() (Key, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.over == nil {
		return Key{}, 0, false
	}
	return c.over.key, c.over.index, true
}

// EndDrag abandons the current gesture without dropping.
func (c *Coordinator) EndDrag() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearDragLocked()
}

// Drop completes a drag gesture. The source comes from the recorded drag, or
// from payload when that state was lost. On success the move is applied to
// the local copy and returned as the collection's pending reorder; no store
// call is made. A drop onto the source index returns (nil, nil).
func (c *Coordinator) Drop(key Key, targetIndex int, payload *DragPayload) (*PendingReorder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.clearDragLocked()

	if c.selectMode {
		return nil, ErrSelectMode
	}

	var src dragState
	switch {
	case c.drag != nil:
		src = *c.drag
	case payload != nil:
		src = dragState{key: payload.Key, sourceIndex: payload.SourceIndex}
	default:
		return nil, ErrNoDrag
	}
	if src.key != key {
		return nil, ErrCrossCollection
	}
	if c.busyLocked(key) {
		return nil, ErrReorderPending
	}

	items, ok := c.collections[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotLoaded)
	}
	if src.sourceIndex < 0 || src.sourceIndex >= len(items) {
		return nil, fmt.Errorf("source %d of %d: %w", src.sourceIndex, len(items), ErrIndexOutOfRange)
	}
	if src.sourceIndex == targetIndex {
		return nil, nil
	}

	insertAt := clamp(targetIndex, 0, len(items)-1)
	if insertAt == src.sourceIndex {
		return nil, nil
	}
	if key.TopLevel() && (c.locked[items[src.sourceIndex].ID] || c.locked[items[insertAt].ID]) {
		return nil, ErrItemLocked
	}

	return clonePending(c.stageLocked(key, items, src.sourceIndex, insertAt)), nil
}

// Move shifts the item one slot up (dir < 0) or down (dir > 0) and stages the
// result exactly like a drop. Moving past either end returns (nil, nil).
func (c *Coordinator) Move(key Key, id string, dir int) (*PendingReorder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selectMode {
		return nil, ErrSelectMode
	}
	if c.busyLocked(key) {
		return nil, ErrReorderPending
	}
	items, ok := c.collections[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotLoaded)
	}
	idx := indexOf(items, id)
	if idx == -1 {
		return nil, fmt.Errorf("item %s in %s: %w", id, key, ErrIndexOutOfRange)
	}

	step := 0
	switch {
	case dir < 0:
		step = -1
	case dir > 0:
		step = 1
	}
	newIdx := clamp(idx+step, 0, len(items)-1)
	if newIdx == idx {
		return nil, nil
	}
	if key.TopLevel() && (c.locked[items[idx].ID] || c.locked[items[newIdx].ID]) {
		return nil, ErrItemLocked
	}

	return clonePending(c.stageLocked(key, items, idx, newIdx)), nil
}

// Confirm persists the collection's pending reorder. Whatever the outcome of
// the update, the collection is reloaded from the store and the pending
// reorder is cleared. A moved item without a name fails locally and stays
// pending so it can still be cancelled.
func (c *Coordinator) Confirm(ctx context.Context, key Key) error {
	c.mu.Lock()
	if c.confirming[key] {
		c.mu.Unlock()
		return ErrConfirmInFlight
	}
	p := c.pending[key]
	if p == nil {
		c.mu.Unlock()
		return ErrNoPending
	}
	payload, err := p.Payload()
	if err != nil {
		c.messages[key] = err.Error()
		c.mu.Unlock()
		c.logger.Warn("reorder rejected", "collection", key.String(), "item_id", p.MovedID, "error", err)
		return err
	}
	c.confirming[key] = true
	c.generations[key]++
	delete(c.messages, key)
	movedID := p.MovedID
	previous := p.PreviousOrder
	c.mu.Unlock()

	var persistErr error
	if err := c.store.Update(ctx, key, movedID, payload); err != nil {
		persistErr = &PersistError{Key: key, ItemID: movedID, Err: err}
		c.logger.Error("reorder persist failed",
			"collection", key.String(),
			"item_id", movedID,
			"position", payload.Position,
			"error", err,
		)
	} else {
		c.logger.Info("reorder persisted",
			"collection", key.String(),
			"item_id", movedID,
			"position", payload.Position,
		)
	}

	// The round trip is not abandoned once the update was sent, and a reload
	// that started before the update must not be shared.
	c.reloads.Forget(key.String())
	_, reloadErr := c.Reload(context.WithoutCancel(ctx), key)

	c.mu.Lock()
	if persistErr != nil && reloadErr != nil {
		// nothing was saved and the store is unreadable: back to the old order
		c.collections[key] = previous
	}
	delete(c.pending, key)
	delete(c.confirming, key)
	switch {
	case persistErr != nil:
		c.messages[key] = persistErr.Error()
	case reloadErr != nil:
		c.messages[key] = reloadErr.Error()
	}
	c.mu.Unlock()

	if persistErr != nil {
		return persistErr
	}
	return reloadErr
}

// Cancel rolls the collection back to its order before the pending reorder.
func (c *Coordinator) Cancel(key Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.confirming[key] {
		return ErrConfirmInFlight
	}
	p := c.pending[key]
	if p == nil {
		return ErrNoPending
	}
	c.collections[key] = slices.Clone(p.PreviousOrder)
	delete(c.pending, key)
	delete(c.messages, key)

	c.logger.Debug("reorder cancelled", "collection", key.String(), "item_id", p.MovedID)
	return nil
}

// stageLocked applies the move to the cached collection and records it as
// pending. Callers hold c.mu.
func (c *Coordinator) stageLocked(key Key, items []Item, from, to int) *PendingReorder {
	next := moveItem(items, from, to)
	p := &PendingReorder{
		Key:           key,
		MovedID:       items[from].ID,
		Moved:         items[from],
		SourceIndex:   from,
		InsertAt:      to,
		PreviousOrder: slices.Clone(items),
		NewOrder:      slices.Clone(next),
	}
	c.collections[key] = next
	c.pending[key] = p
	delete(c.messages, key)

	c.logger.Debug("reorder staged",
		"collection", key.String(),
		"item_id", p.MovedID,
		"from", from,
		"to", to,
	)
	return p
}

func (c *Coordinator) busyLocked(key Key) bool {
	return c.pending[key] != nil || c.confirming[key]
}

func (c *Coordinator) clearDragLocked() {
	c.drag = nil
	c.over = nil
}
