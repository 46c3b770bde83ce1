package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/manavault/internal/market"
)

// openDetail shows card full screen. source is recorded on cart and
// collection adds made from the detail.
func (m *Model) openDetail(card market.Card, source market.CardSource) {
	m.nav.Select(card)
	m.detailSource = source
	m.detail.SetContent(m.cardDetailContent(card))
	m.detail.GotoTop()
}

func (m *Model) handleDetailKey(msg tea.KeyMsg, card market.Card) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.AddToCart):
		return m.addToCart(card, m.detailSource)
	case key.Matches(msg, m.keys.AddToCollection):
		return m.addToCollection(card, m.detailSource)
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return nil
	}
	m.detail.SetContent(m.cardDetailContent(card))
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return cmd
}

func (m Model) renderCardDetail(card market.Card) string {
	vp := m.detail
	vp.SetContent(m.cardDetailContent(card))
	return panel(m.theme, vp.View(), max(m.width-2, 20))
}

// cardDetailContent lays out every field of card.
func (m Model) cardDetailContent(card market.Card) string {
	styles := m.theme.Styles()
	label := func(s string) string { return styles.MutedText.Render(padRight(s, 12)) }

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(card.Name))
	b.WriteString("  ")
	b.WriteString(styles.RarityStyle(card.Rarity).Render(string(card.Rarity)))
	b.WriteString("\n\n")

	rows := [][2]string{
		{"Price", formatPrice(card.Price.Decimal)},
		{"Mana cost", fmt.Sprintf("%d", card.ManaCost)},
		{"Color", card.Color},
		{"Type", card.Type},
		{"Set", card.Set},
		{"Condition", card.Condition},
		{"Image", card.Image},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		b.WriteString(label(r[0]))
		b.WriteString(styles.Text.Render(r[1]))
		b.WriteString("\n")
	}

	if owned := m.ownedCopies(card.ID); owned > 0 {
		b.WriteString(label("Owned"))
		b.WriteString(styles.SuccessText.Render(fmt.Sprintf("%d", owned)))
		b.WriteString("\n")
	}
	if item, ok := m.cart.Item(card.ID); ok {
		b.WriteString(label("In cart"))
		b.WriteString(styles.InfoText.Render(fmt.Sprintf("%d", item.Quantity)))
		b.WriteString("\n")
	}

	if card.Description != "" {
		b.WriteString("\n")
		b.WriteString(styles.Text.Width(max(m.width-10, 20)).Render(card.Description))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("a: Add to cart  •  o: Add to collection  •  Esc: Close"))
	return b.String()
}

// ownedCopies sums the signed-in user's copies of the catalog card id.
func (m Model) ownedCopies(id string) int {
	n := 0
	for _, c := range m.collection.Cards() {
		if c.OriginalID == id || c.ID == id {
			n += c.Count()
		}
	}
	return n
}
