package reorder

import (
	"cmp"
	"slices"
)

// SortByPosition returns a copy of items in ascending position order. Items
// sharing a position keep their relative order.
func SortByPosition(items []Item) []Item {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b Item) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return out
}

// moveItem removes the item at from, reinserts it at to and renumbers every
// position to its new index. The input slice is not modified.
func moveItem(items []Item, from, to int) []Item {
	moved := items[from]
	out := make([]Item, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	out = slices.Insert(out, to, moved)
	for i := range out {
		out[i].Position = i
	}
	return out
}

func indexOf(items []Item, id string) int {
	return slices.IndexFunc(items, func(it Item) bool { return it.ID == id })
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func clonePending(p *PendingReorder) *PendingReorder {
	if p == nil {
		return nil
	}
	cp := *p
	cp.PreviousOrder = slices.Clone(p.PreviousOrder)
	cp.NewOrder = slices.Clone(p.NewOrder)
	return &cp
}
