package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/manavault/internal/market"
	"github.com/five82/manavault/internal/shop"
	"github.com/five82/manavault/internal/view"
)

type checkoutDoneMsg struct {
	receipt shop.Receipt
	err     error
}

func (m *Model) handleCartKey(msg tea.KeyMsg) tea.Cmd {
	items := m.cart.Items()
	if m.moveCursor(msg, view.Cart, len(items)) {
		return nil
	}
	c := m.cart
	if key.Matches(msg, m.keys.ClearAll) {
		if len(items) == 0 {
			return nil
		}
		m.confirm("Clear cart", fmt.Sprintf("Remove all %d items from your cart?", len(items)), "Cart cleared",
			func(ctx context.Context) error { return c.Clear(ctx) })
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	item := items[clamp(m.cursors[view.Cart], len(items))]
	id := item.Card.ID
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.openDetail(item.Card, item.Source)
	case key.Matches(msg, m.keys.Increase):
		return m.run("Update quantity", "", func(ctx context.Context) error {
			return c.UpdateQuantity(ctx, id, item.Quantity+1)
		})
	case key.Matches(msg, m.keys.Decrease):
		return m.run("Update quantity", "", func(ctx context.Context) error {
			return c.UpdateQuantity(ctx, id, item.Quantity-1)
		})
	case key.Matches(msg, m.keys.Delete):
		return m.run("Remove from cart", item.Card.Name+" removed from cart", func(ctx context.Context) error {
			return c.Remove(ctx, id)
		})
	}
	return nil
}

func (m *Model) handleCheckoutKey(msg tea.KeyMsg) tea.Cmd {
	if !key.Matches(msg, m.keys.Confirm) {
		return nil
	}
	user, _ := m.session.Current()
	items := m.cart.Items()
	ctx, svc := m.ctx, m.shop
	m.status = statusLine{text: "Placing order..."}
	return func() tea.Msg {
		receipt, err := svc.Checkout(ctx, user, items)
		return checkoutDoneMsg{receipt: receipt, err: err}
	}
}

func (m *Model) handleCheckoutDone(msg checkoutDoneMsg) tea.Cmd {
	switch {
	case errors.Is(msg.err, shop.ErrEmptyCheckout):
		m.status = statusLine{text: "Your cart is empty", danger: true}
		return nil
	case errors.Is(msg.err, shop.ErrNotAuthenticated):
		m.status = statusLine{text: "Sign in to check out", danger: true}
		return nil
	case msg.err != nil:
		m.status = statusLine{}
		m.modal = alertModal{title: "Checkout failed", message: checkoutProblem(msg.err)}
		m.nav.Navigate(m.ctx, view.Catalog)
	default:
		m.status = statusLine{text: fmt.Sprintf("Order placed: %d cards for %s", msg.receipt.Items, formatPrice(msg.receipt.Total))}
		m.nav.Navigate(m.ctx, view.Catalog)
	}
	if m.store == nil {
		return nil
	}
	return fetchSnapshotCmd(m.store)
}

func checkoutProblem(err error) string {
	if msg := market.RejectionMessage(err); msg != "" {
		return msg
	}
	if market.IsTransport(err) {
		return "Cannot reach the server. Your cart was kept."
	}
	return err.Error()
}

func (m Model) renderCart() string {
	styles := m.theme.Styles()
	if _, ok := m.session.Current(); !ok {
		return styles.MutedText.Render("Sign in to use the cart.")
	}
	items := m.cart.Items()

	var b strings.Builder
	b.WriteString(styles.MutedText.Render("Items ") + styles.Text.Render(fmt.Sprintf("%d", m.cart.Count())))
	b.WriteString(styles.FaintText.Render("  •  "))
	b.WriteString(styles.MutedText.Render("Total ") + styles.InfoText.Render(formatPrice(m.cart.Total())))
	b.WriteString("\n")
	b.WriteString(m.renderCartTable(items, m.cursors[view.Cart], true, m.contentHeight()-1))
	return b.String()
}

func (m Model) renderCartTable(items []market.CartItem, cursor int, showCursor bool, height int) string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.FaintText.Render(fmt.Sprintf("  %s %s %9s %4s %10s",
		cell("Card", 28), cell("Source", 11), "Price", "Qty", "Subtotal")))
	b.WriteString("\n")
	if len(items) == 0 {
		b.WriteString(styles.MutedText.Render("  Your cart is empty."))
		return b.String()
	}

	cursor = clamp(cursor, len(items))
	start, end := window(cursor, len(items), height-1)
	for i := start; i < end; i++ {
		it := items[i]
		row := fmt.Sprintf("%s %s %9s %4d %10s",
			cell(it.Card.Name, 28), cell(string(it.Source), 11), formatPrice(it.Card.Price.Decimal), it.Quantity, formatPrice(it.Subtotal()))
		if showCursor && i == cursor {
			b.WriteString(styles.Selected.Render("▸ " + row))
		} else {
			b.WriteString("  " + styles.Text.Render(row))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderCheckout() string {
	styles := m.theme.Styles()
	user, ok := m.session.Current()
	if !ok {
		return styles.MutedText.Render("Sign in to check out.")
	}
	items := m.cart.Items()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Order summary"))
	b.WriteString("\n")
	b.WriteString(m.renderCartTable(items, 0, false, m.contentHeight()-8))
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render(padRight("Buyer", 10)) + styles.Text.Render(displayName(user)+" <"+user.Email+">"))
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render(padRight("Total", 10)) + styles.InfoText.Render(formatPrice(m.cart.Total())))
	b.WriteString("\n\n")
	if len(items) == 0 {
		b.WriteString(styles.MutedText.Render("Add cards to your cart first."))
	} else {
		b.WriteString(styles.AccentText.Render("Enter: Place order"))
	}
	return b.String()
}
