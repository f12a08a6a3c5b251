// Package inventory holds the druid's item stacks.
package inventory

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/druid-of-peace/pkg/content"
)

var (
	ErrUnknownItem = errors.New("unknown item")
	ErrNotHeld     = errors.New("item not held")
)

// Stack is a count of one item.
type Stack struct {
	ItemID string `json:"item_id"`
	Count  int    `json:"count"`
}

// Inventory is the druid's bag. The catalog is attached after loading and
// never changes during play.
type Inventory struct {
	Stacks []Stack `json:"stacks"`

	catalog map[string]content.Item
}

// New creates an empty inventory over catalog.
func New(catalog map[string]content.Item) *Inventory {
	return &Inventory{catalog: catalog}
}

// Attach binds the item catalog to an inventory restored from storage.
func (inv *Inventory) Attach(catalog map[string]content.Item) {
	inv.catalog = catalog
}

func (inv *Inventory) find(id string) int {
	for i, s := range inv.Stacks {
		if s.ItemID == id {
			return i
		}
	}
	return -1
}

// Add puts up to n of an item in the bag, capped at its MaxStack. It
// returns how many were actually added.
func (inv *Inventory) Add(id string, n int) (int, error) {
	item, ok := inv.catalog[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	if n <= 0 {
		return 0, nil
	}
	i := inv.find(id)
	if i < 0 {
		inv.Stacks = append(inv.Stacks, Stack{ItemID: id})
		i = len(inv.Stacks) - 1
	}
	added := min(n, max(item.MaxStack-inv.Stacks[i].Count, 0))
	inv.Stacks[i].Count += added
	if inv.Stacks[i].Count == 0 {
		inv.Stacks = append(inv.Stacks[:i], inv.Stacks[i+1:]...)
	}
	return added, nil
}

// Use removes one of an item and returns its definition. Empty stacks are
// dropped.
func (inv *Inventory) Use(id string) (content.Item, error) {
	item, ok := inv.catalog[id]
	if !ok {
		return content.Item{}, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	i := inv.find(id)
	if i < 0 || inv.Stacks[i].Count <= 0 {
		return content.Item{}, fmt.Errorf("%w: %s", ErrNotHeld, id)
	}
	inv.Stacks[i].Count--
	if inv.Stacks[i].Count == 0 {
		inv.Stacks = append(inv.Stacks[:i], inv.Stacks[i+1:]...)
	}
	return item, nil
}

// Count returns how many of an item are held.
func (inv *Inventory) Count(id string) int {
	if i := inv.find(id); i >= 0 {
		return inv.Stacks[i].Count
	}
	return 0
}

// Entry pairs a held stack with its item definition.
type Entry struct {
	Item  content.Item `json:"item"`
	Count int          `json:"count"`
}

// Items lists held items in the order they were first added.
func (inv *Inventory) Items() []Entry {
	out := make([]Entry, 0, len(inv.Stacks))
	for _, s := range inv.Stacks {
		out = append(out, Entry{Item: inv.catalog[s.ItemID], Count: s.Count})
	}
	return out
}
