package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/manavault/internal/market"
	"github.com/five82/manavault/internal/view"
)

// listingCard is the card of l priced at the asking price.
func listingCard(l market.Listing) market.Card {
	card := l.Card
	card.Price = l.Price
	return card
}

func (m *Model) handleMarketplaceKey(msg tea.KeyMsg) tea.Cmd {
	listings := m.snapshot.Listings
	if m.moveCursor(msg, view.Marketplace, len(listings)) || len(listings) == 0 {
		return nil
	}
	return m.handleListingKey(msg, listings[clamp(m.cursors[view.Marketplace], len(listings))])
}

func (m *Model) handleListingKey(msg tea.KeyMsg, l market.Listing) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.openDetail(listingCard(l), market.SourceMarketplace)
	case key.Matches(msg, m.keys.AddToCart):
		if m.session.UserID() == l.Seller.ID {
			m.status = statusLine{text: "You cannot buy your own listing", danger: true}
			return nil
		}
		return m.addToCart(listingCard(l), market.SourceMarketplace)
	case key.Matches(msg, m.keys.Delete):
		if m.session.UserID() != l.Seller.ID && !m.session.IsAdmin() {
			m.status = statusLine{text: "Only the seller can withdraw a listing", danger: true}
			return nil
		}
		svc, id := m.shop, l.ID
		m.confirm("Withdraw listing", fmt.Sprintf("Withdraw %q from the marketplace?", l.Card.Name), "Listing withdrawn",
			func(ctx context.Context) error { return svc.RemoveListing(ctx, id) })
	}
	return nil
}

func (m Model) renderMarketplace() string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.MutedText.Render(fmt.Sprintf("%d listings", len(m.snapshot.Listings))))
	b.WriteString("\n")
	b.WriteString(m.renderListingTable(m.snapshot.Listings, m.cursors[view.Marketplace], m.contentHeight()-1,
		"Nothing for sale right now. List a card from your collection (s)."))
	return b.String()
}

// renderListingTable renders listings with a cursor.
func (m Model) renderListingTable(listings []market.Listing, cursor, height int, empty string) string {
	styles := m.theme.Styles()
	me := m.session.UserID()

	var b strings.Builder
	header := fmt.Sprintf("  %s %s %s %s %9s",
		cell("Card", 28), cell("Rarity", 10), cell("Set", 16), cell("Seller", 16), "Price")
	b.WriteString(styles.FaintText.Render(header))
	b.WriteString("\n")

	if len(listings) == 0 {
		b.WriteString(styles.MutedText.Render("  " + empty))
		return b.String()
	}

	cursor = clamp(cursor, len(listings))
	start, end := window(cursor, len(listings), height-1)
	for i := start; i < end; i++ {
		l := listings[i]
		seller := "@" + l.Seller.Username
		if l.Seller.ID == me {
			seller = "you"
		}
		name := cell(l.Card.Name, 28)
		rest := fmt.Sprintf(" %s %s %9s", cell(l.Card.Set, 16), cell(seller, 16), formatPrice(l.Price.Decimal))
		if i == cursor {
			b.WriteString(styles.Selected.Render("▸ " + name + " " + cell(string(l.Card.Rarity), 10) + rest))
		} else {
			b.WriteString("  " + styles.Text.Render(name) + " " + m.rarityText(l.Card.Rarity, 10) + styles.MutedText.Render(rest))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
