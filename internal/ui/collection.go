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

// catalogCard returns the catalog card an owned instance was copied from.
func catalogCard(c market.CollectionCard) market.Card {
	card := c.Card
	if c.OriginalID != "" {
		card.ID = c.OriginalID
	}
	return card
}

func (m *Model) handleCollectionKey(msg tea.KeyMsg) tea.Cmd {
	cards := m.collection.Cards()
	if m.moveCursor(msg, view.Collection, len(cards)) {
		return nil
	}
	if len(cards) == 0 {
		return nil
	}
	c := cards[clamp(m.cursors[view.Collection], len(cards))]
	coll := m.collection

	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.openDetail(c.Card, c.Source)
	case key.Matches(msg, m.keys.Increase):
		return m.run("Add copy", "", func(ctx context.Context) error {
			return coll.Add(ctx, catalogCard(c), c.Source, 1)
		})
	case key.Matches(msg, m.keys.Decrease):
		if c.Count() <= 1 {
			m.confirmRemoveOwned(c)
			return nil
		}
		return m.run("Remove copy", "", func(ctx context.Context) error {
			return coll.RemoveQuantity(ctx, c.ID, 1)
		})
	case key.Matches(msg, m.keys.Delete):
		m.confirmRemoveOwned(c)
	case key.Matches(msg, m.keys.Favorite):
		return m.run("Favorite", "", func(ctx context.Context) error {
			return coll.ToggleFavorite(ctx, c.ID)
		})
	case key.Matches(msg, m.keys.AddToCart):
		return m.addToCart(catalogCard(c), market.SourceCatalog)
	case key.Matches(msg, m.keys.Sell):
		return m.openSellForm(c)
	}
	return nil
}

func (m *Model) confirmRemoveOwned(c market.CollectionCard) {
	coll, id := m.collection, c.ID
	m.confirm("Remove card",
		fmt.Sprintf("Remove all %d copies of %q from your collection?", c.Count(), c.Name),
		c.Name+" removed",
		func(ctx context.Context) error { return coll.Remove(ctx, id) })
}

// openSellForm lists one owned card on the marketplace.
func (m *Model) openSellForm(c market.CollectionCard) tea.Cmd {
	user, ok := m.session.Current()
	if !ok {
		return nil
	}
	f := newForm("Sell "+c.Name,
		field{label: "Price", value: c.Price.StringFixed(2), placeholder: "0.00"},
	)
	f.hint = "Leave the price empty to ask the catalog price."
	ctx, svc := m.ctx, m.shop
	card := catalogCard(c)
	m.modal = newFormModal(f, func(values []string) (tea.Cmd, error) {
		price, err := parsePrice(values[0])
		if err != nil {
			return nil, fmt.Errorf("price: %w", err)
		}
		listing := market.Listing{Card: card, Seller: user, Price: market.Price{Decimal: price}}
		return runCmd(ctx, "Sell", card.Name+" listed on the marketplace", func(ctx context.Context) error {
			_, err := svc.AddListing(ctx, listing)
			return err
		}), nil
	})
	return nil
}

func (m Model) renderCollection() string {
	styles := m.theme.Styles()
	if _, ok := m.session.Current(); !ok {
		return styles.MutedText.Render("Sign in to see your collection.")
	}
	if !m.collection.Loaded() {
		return styles.MutedText.Render("Loading collection...")
	}

	stats := m.collection.Stats()
	var b strings.Builder
	b.WriteString(styles.MutedText.Render("Cards ") + styles.Text.Render(fmt.Sprintf("%d", stats.TotalCards)))
	b.WriteString(styles.FaintText.Render("  •  "))
	b.WriteString(styles.MutedText.Render("Sets ") + styles.Text.Render(fmt.Sprintf("%d", stats.Sets)))
	b.WriteString(styles.FaintText.Render("  •  "))
	b.WriteString(styles.MutedText.Render("Favorites ") + styles.Text.Render(fmt.Sprintf("%d", stats.Favorites)))
	b.WriteString(styles.FaintText.Render("  •  "))
	b.WriteString(styles.MutedText.Render("Value ") + styles.InfoText.Render(formatPrice(stats.TotalValue)))
	b.WriteString("\n")

	cards := m.collection.Cards()
	b.WriteString(m.renderOwnedTable(cards, m.cursors[view.Collection], m.contentHeight()-1, "Your collection is empty. Add cards from the catalog (o)."))
	return b.String()
}

// renderOwnedTable renders owned cards with a cursor.
func (m Model) renderOwnedTable(cards []market.CollectionCard, cursor, height int, empty string) string {
	styles := m.theme.Styles()
	var b strings.Builder
	header := fmt.Sprintf("  %s %s %s %s %4s %9s %s",
		cell("Name", 28), cell("Rarity", 10), cell("Set", 16), cell("Source", 11), "Qty", "Value", "★")
	b.WriteString(styles.FaintText.Render(header))
	b.WriteString("\n")

	if len(cards) == 0 {
		b.WriteString(styles.MutedText.Render("  " + empty))
		return b.String()
	}

	cursor = clamp(cursor, len(cards))
	start, end := window(cursor, len(cards), height-1)
	for i := start; i < end; i++ {
		c := cards[i]
		fav := " "
		if c.IsFavorite {
			fav = "★"
		}
		rest := fmt.Sprintf(" %s %s %4d %9s %s",
			cell(c.Set, 16), cell(string(c.Source), 11), c.Count(), formatPrice(c.LineValue()), fav)
		name := cell(c.Name, 28)
		if i == cursor {
			b.WriteString(styles.Selected.Render("▸ " + name + " " + cell(string(c.Rarity), 10) + rest))
		} else {
			b.WriteString("  " + styles.Text.Render(name) + " " + m.rarityText(c.Rarity, 10) + styles.MutedText.Render(rest))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
