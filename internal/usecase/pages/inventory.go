package pages

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/input"
	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
)

var _ input.InventoryPage = (*InventoryPage)(nil)

var inventoryElements = struct {
	pageMarker    entity.Locator
	items         entity.Locator
	itemName      entity.Locator
	itemPrice     entity.Locator
	itemDesc      entity.Locator
	addToCart     entity.Locator
	cartContainer entity.Locator
	cartBadge     entity.Locator
}{
	pageMarker:    entity.ClassName("inventory_container"),
	items:         entity.XPath(`//*[@data-test="inventory-item"]`),
	itemName:      entity.XPath(`.//*[@data-test="inventory-item-name"]`),
	itemPrice:     entity.XPath(`.//*[@data-test="inventory-item-price"]`),
	itemDesc:      entity.XPath(`.//*[@data-test="inventory-item-desc"]`),
	addToCart:     entity.XPath(`.//button[starts-with(@data-test, "add-to-cart")]`),
	cartContainer: entity.ID("shopping_cart_container"),
	cartBadge:     entity.ClassName("shopping_cart_badge"),
}

const cartBadgeTimeout = time.Second

type InventoryPage struct {
	browser Interactor
}

func NewInventoryPage(browser Interactor) *InventoryPage {
	return &InventoryPage{browser: browser}
}

func (p *InventoryPage) IsPageOpened(ctx context.Context, timeout time.Duration) entity.Outcome[entity.None] {
	return opened(ctx, p.browser, inventoryElements.pageMarker, timeout, "Inventory")
}

// Items reads every inventory block in page order.
func (p *InventoryPage) Items(ctx context.Context) entity.Outcome[[]entity.InventoryItem] {
	blocks := p.browser.FindAll(ctx, inventoryElements.items, 0)
	if len(blocks) == 0 {
		return entity.Fail[[]entity.InventoryItem]("No inventory items found")
	}

	items := make([]entity.InventoryItem, 0, len(blocks))
	for i, block := range blocks {
		var item entity.InventoryItem
		fields := []struct {
			name string
			loc  entity.Locator
			dst  *string
		}{
			{"name", inventoryElements.itemName, &item.Name},
			{"price", inventoryElements.itemPrice, &item.Price},
			{"description", inventoryElements.itemDesc, &item.Description},
		}
		for _, f := range fields {
			text, err := p.browser.TextWithin(ctx, block, f.loc)
			if err != nil {
				return entity.Failf[[]entity.InventoryItem]("Failed to read %s of inventory item %d: %v", f.name, i+1, err)
			}
			*f.dst = text
		}
		items = append(items, item)
	}
	return entity.Succeed(items)
}

// AddToCart clicks the add-to-cart button of the item at the 0-based index.
// The index is checked against the rendered items before anything is clicked.
func (p *InventoryPage) AddToCart(ctx context.Context, index int) entity.Outcome[entity.None] {
	blocks := p.browser.FindAll(ctx, inventoryElements.items, 0)
	if index < 0 || index >= len(blocks) {
		return entity.Failf[entity.None]("Inventory item index %d is out of range: %d items on the page", index, len(blocks))
	}

	if err := p.browser.ClickWithin(ctx, blocks[index], inventoryElements.addToCart, 0); err != nil {
		return entity.Failf[entity.None]("Failed to click add-to-cart for inventory item at index %d: %v", index, err)
	}
	return entity.Done()
}

// CartBadgeCount reads the number on the cart badge. The badge is not rendered
// for an empty cart, which yields an Empty outcome; a missing cart is a failure.
func (p *InventoryPage) CartBadgeCount(ctx context.Context) entity.Outcome[int] {
	if !p.browser.IsPresent(ctx, inventoryElements.cartContainer, 0) {
		return entity.Failf[int]("Shopping cart is not detected by: %s", inventoryElements.cartContainer)
	}
	if !p.browser.IsPresent(ctx, inventoryElements.cartBadge, cartBadgeTimeout) {
		return entity.Empty[int]()
	}

	text := strings.TrimSpace(p.browser.ReadText(ctx, inventoryElements.cartBadge, cartBadgeTimeout))
	count, err := strconv.Atoi(text)
	if err != nil {
		return entity.Failf[int]("Cart badge shows %q, not a number", text)
	}
	return entity.Succeed(count)
}
