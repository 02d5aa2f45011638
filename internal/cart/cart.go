// Package cart is the customer app's cart: an in-memory line list written
// through to device storage so it survives app restarts. It clears on
// successful order placement or an explicit clear.
package cart

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/shivdhaba/delivery-core/internal/storage"
	"github.com/shivdhaba/delivery-core/pkg/models"
)

type Cart struct {
	storage *storage.Store
	logger  *logrus.Logger

	mu    sync.Mutex
	lines []models.CartLine
}

// New loads any persisted cart. A corrupt stored cart starts empty.
func New(st *storage.Store, logger *logrus.Logger) *Cart {
	c := &Cart{storage: st, logger: logger}

	var lines []models.CartLine
	if st.GetJSON(storage.KeyCartItems, &lines) {
		c.lines = lines
	}
	return c
}

// Add puts quantity of the menu item into the cart. A line with the same
// item and the same special instructions merges; different instructions get
// their own line.
func (c *Cart) Add(item models.MenuItem, quantity int, instructions string) {
	if quantity < 1 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].MenuItemID == item.ID && c.lines[i].SpecialInstructions == instructions {
			c.lines[i].Quantity += quantity
			c.persistLocked()
			return
		}
	}

	c.lines = append(c.lines, models.CartLine{
		MenuItemID:          item.ID,
		Name:                item.Name,
		Price:               item.Price,
		ImageURL:            item.ImageURL,
		Quantity:            quantity,
		SpecialInstructions: instructions,
	})
	c.persistLocked()
}

// Remove drops every line for the menu item.
func (c *Cart) Remove(menuItemID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.lines[:0]
	for _, l := range c.lines {
		if l.MenuItemID != menuItemID {
			kept = append(kept, l)
		}
	}
	c.lines = kept
	c.persistLocked()
}

// UpdateQuantity sets the quantity on the first line for the menu item;
// zero or negative removes the item entirely.
func (c *Cart) UpdateQuantity(menuItemID int64, quantity int) {
	if quantity <= 0 {
		c.Remove(menuItemID)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].MenuItemID == menuItemID {
			c.lines[i].Quantity = quantity
			c.persistLocked()
			return
		}
	}
}

// UpdateInstructions replaces the special instructions on the first line for
// the menu item.
func (c *Cart) UpdateInstructions(menuItemID int64, instructions string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].MenuItemID == menuItemID {
			c.lines[i].SpecialInstructions = instructions
			c.persistLocked()
			return
		}
	}
}

// Lines returns a copy of the cart contents.
func (c *Cart) Lines() []models.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total is the sum of quantity times unit price across all lines.
func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total float64
	for _, l := range c.lines {
		total += l.LineTotal()
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// Clear empties the cart, removing the persisted copy too.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
	if err := c.storage.Delete(storage.KeyCartItems); err != nil {
		c.logger.WithError(err).Warn("Failed to remove persisted cart")
	}
}

// OrderItems converts the cart to the placement payload.
func (c *Cart) OrderItems() []models.PlaceOrderItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]models.PlaceOrderItem, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, models.PlaceOrderItem{
			MenuItemID:          l.MenuItemID,
			Quantity:            l.Quantity,
			SpecialInstructions: l.SpecialInstructions,
		})
	}
	return items
}

func (c *Cart) persistLocked() {
	if err := c.storage.SetJSON(storage.KeyCartItems, c.lines); err != nil {
		c.logger.WithError(err).Warn("Failed to persist cart")
	}
}
