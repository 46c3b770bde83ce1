package ui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/manavault/internal/market"
	"github.com/five82/manavault/internal/shop"
	"github.com/five82/manavault/internal/view"
)

var errAdminOnly = errors.New("only the administrator can edit the catalog")

// visibleCatalog applies the active filter to the snapshot.
func (m Model) visibleCatalog() []market.Card {
	return shop.Search(m.snapshot.Catalog, m.catalog.filter)
}

func (m *Model) selectedCatalogCard() (market.Card, bool) {
	cards := m.visibleCatalog()
	if len(cards) == 0 {
		return market.Card{}, false
	}
	return cards[clamp(m.cursors[view.Catalog], len(cards))], true
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.catalog.searching = false
		m.catalog.search.Blur()
		m.catalog.search.SetValue("")
		m.catalog.filter.Query = ""
		return nil
	case key.Matches(msg, m.keys.Confirm):
		m.catalog.searching = false
		m.catalog.search.Blur()
		return nil
	}
	var cmd tea.Cmd
	m.catalog.search, cmd = m.catalog.search.Update(msg)
	m.catalog.filter.Query = m.catalog.search.Value()
	m.cursors[view.Catalog] = 0
	return cmd
}

func (m *Model) handleCatalogKey(msg tea.KeyMsg) tea.Cmd {
	cards := m.visibleCatalog()
	if m.moveCursor(msg, view.Catalog, len(cards)) {
		return nil
	}

	colors, types := shop.Facets(m.snapshot.Catalog)
	f := &m.catalog.filter
	switch {
	case key.Matches(msg, m.keys.Search):
		m.catalog.searching = true
		return m.catalog.search.Focus()
	case key.Matches(msg, m.keys.CycleRarity):
		rarities := make([]string, len(market.Rarities))
		for i, r := range market.Rarities {
			rarities[i] = string(r)
		}
		f.Rarity = market.Rarity(cycle(rarities, string(f.Rarity)))
	case key.Matches(msg, m.keys.CycleColor):
		f.Color = cycle(colors, f.Color)
	case key.Matches(msg, m.keys.CycleType):
		f.Type = cycle(types, f.Type)
	case key.Matches(msg, m.keys.CycleSet):
		f.Set = cycle(m.snapshot.Sets, f.Set)
	case key.Matches(msg, m.keys.ClearFilters):
		m.catalog.filter = shop.Filter{}
		m.catalog.search.SetValue("")
	case key.Matches(msg, m.keys.NewSet):
		return m.openSetForm()
	case key.Matches(msg, m.keys.DeleteSet):
		return m.confirmDeleteSet()
	case key.Matches(msg, m.keys.NewCard):
		return m.openCardForm(market.Card{}, false)
	default:
		card, ok := m.selectedCatalogCard()
		if !ok {
			return nil
		}
		return m.handleCatalogCardKey(msg, card)
	}
	m.cursors[view.Catalog] = 0
	return nil
}

func (m *Model) handleCatalogCardKey(msg tea.KeyMsg, card market.Card) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.openDetail(card, market.SourceCatalog)
	case key.Matches(msg, m.keys.AddToCart):
		return m.addToCart(card, market.SourceCatalog)
	case key.Matches(msg, m.keys.AddToCollection):
		return m.addToCollection(card, market.SourceCatalog)
	case key.Matches(msg, m.keys.EditCard):
		return m.openCardForm(card, true)
	case key.Matches(msg, m.keys.Delete):
		if !m.session.IsAdmin() {
			m.status = statusLine{text: errAdminOnly.Error(), danger: true}
			return nil
		}
		id, svc := card.ID, m.shop
		m.confirm("Delete card", fmt.Sprintf("Remove %q from the catalog?", card.Name), "Card deleted",
			func(ctx context.Context) error { return svc.DeleteCard(ctx, id) })
	}
	return nil
}

// cycle advances current through "" followed by values.
func cycle(values []string, current string) string {
	if len(values) == 0 {
		return ""
	}
	i := slices.Index(values, current)
	if i == len(values)-1 {
		return ""
	}
	return values[i+1]
}

func (m *Model) addToCart(card market.Card, source market.CardSource) tea.Cmd {
	c := m.cart
	return m.run("Add to cart", fmt.Sprintf("Added %s to cart", card.Name), func(ctx context.Context) error {
		return c.Add(ctx, card, 1, source)
	})
}

func (m *Model) addToCollection(card market.Card, source market.CardSource) tea.Cmd {
	coll := m.collection
	return m.run("Add to collection", fmt.Sprintf("Added %s to your collection", card.Name), func(ctx context.Context) error {
		return coll.Add(ctx, card, source, 1)
	})
}

func (m *Model) openSetForm() tea.Cmd {
	if !m.session.IsAdmin() {
		m.status = statusLine{text: errAdminOnly.Error(), danger: true}
		return nil
	}
	f := newForm("New set", field{label: "Name", placeholder: "Dominaria", limit: 60})
	ctx, svc := m.ctx, m.shop
	m.modal = newFormModal(f, func(values []string) (tea.Cmd, error) {
		name := values[0]
		if name == "" {
			return nil, shop.ErrSetNameRequired
		}
		return runCmd(ctx, "Add set", "Set "+name+" added", func(ctx context.Context) error {
			added, err := svc.AddSet(ctx, name)
			if err == nil && !added {
				return fmt.Errorf("set %q already exists", name)
			}
			return err
		}), nil
	})
	return nil
}

func (m *Model) confirmDeleteSet() tea.Cmd {
	if !m.session.IsAdmin() {
		m.status = statusLine{text: errAdminOnly.Error(), danger: true}
		return nil
	}
	name, svc := m.catalog.filter.Set, m.shop
	if name == "" {
		m.status = statusLine{text: "Filter by a set (S) to choose which one to delete", danger: true}
		return nil
	}
	m.confirm("Delete set", fmt.Sprintf("Delete the set %q? Its cards stay in the catalog.", name), "Set deleted",
		func(ctx context.Context) error { return svc.DeleteSet(ctx, name) })
	return nil
}

// openCardForm opens the admin card editor. With edit false a new card is
// created.
func (m *Model) openCardForm(card market.Card, edit bool) tea.Cmd {
	if !m.session.IsAdmin() {
		m.status = statusLine{text: errAdminOnly.Error(), danger: true}
		return nil
	}
	title := "New card"
	price, mana := "", ""
	if edit {
		title = "Edit " + card.Name
		price = card.Price.StringFixed(2)
		mana = strconv.Itoa(card.ManaCost)
	}
	f := newForm(title,
		field{label: "Name", value: card.Name},
		field{label: "Rarity", value: string(card.Rarity), placeholder: "Common, Uncommon, Rare, Legendary"},
		field{label: "Color", value: card.Color, placeholder: "Blue"},
		field{label: "Type", value: card.Type, placeholder: "Instant"},
		field{label: "Set", value: card.Set},
		field{label: "Price", value: price, placeholder: "0.00"},
		field{label: "Mana cost", value: mana, placeholder: "0"},
		field{label: "Description", value: card.Description, limit: 400},
		field{label: "Image URL", value: card.Image, limit: 400},
	)
	ctx, svc := m.ctx, m.shop
	m.modal = newFormModal(f, func(values []string) (tea.Cmd, error) {
		next, err := cardFromForm(card, values)
		if err != nil {
			return nil, err
		}
		if err := next.Validate(); err != nil {
			return nil, err
		}
		if edit {
			return runCmd(ctx, "Update card", next.Name+" updated", func(ctx context.Context) error {
				return svc.UpdateCard(ctx, next)
			}), nil
		}
		return runCmd(ctx, "Add card", next.Name+" added", func(ctx context.Context) error {
			_, err := svc.AddCard(ctx, next)
			return err
		}), nil
	})
	return nil
}

// cardFromForm overlays the editor values on base.
func cardFromForm(base market.Card, values []string) (market.Card, error) {
	out := base
	out.Name = values[0]
	out.Rarity = market.Rarity(values[1])
	out.Color = values[2]
	out.Type = values[3]
	out.Set = values[4]
	price, err := parsePrice(values[5])
	if err != nil {
		return market.Card{}, fmt.Errorf("price: %w", err)
	}
	out.Price = market.Price{Decimal: price}
	out.ManaCost = 0
	if values[6] != "" {
		mana, err := strconv.Atoi(values[6])
		if err != nil || mana < 0 {
			return market.Card{}, errors.New("mana cost must be a whole number")
		}
		out.ManaCost = mana
	}
	out.Description = values[7]
	out.Image = values[8]
	return out, nil
}

func (m Model) rarityText(r market.Rarity, width int) string {
	color := m.theme.RarityColors[r]
	if color == "" {
		color = m.theme.Muted
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(cell(string(r), width))
}

func (m Model) renderCatalog() string {
	styles := m.theme.Styles()
	cards := m.visibleCatalog()
	height := m.contentHeight()

	var b strings.Builder
	switch {
	case m.catalog.searching:
		b.WriteString(m.catalog.search.View())
	case m.catalog.filter.Active():
		b.WriteString(styles.AccentText.Render(describeFilter(m.catalog.filter)))
	default:
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("%d cards in %d sets", len(m.snapshot.Catalog), len(m.snapshot.Sets))))
	}
	b.WriteString("\n")

	header := fmt.Sprintf("  %s %s %s %s %s %4s %9s",
		cell("Name", 28), cell("Rarity", 10), cell("Color", 10), cell("Type", 14), cell("Set", 16), "Mana", "Price")
	b.WriteString(styles.FaintText.Render(header))
	b.WriteString("\n")

	if len(cards) == 0 {
		b.WriteString(styles.MutedText.Render("  No cards match."))
		return b.String()
	}

	cursor := clamp(m.cursors[view.Catalog], len(cards))
	start, end := window(cursor, len(cards), height-3)
	for i := start; i < end; i++ {
		c := cards[i]
		name := cell(c.Name, 28)
		rest := fmt.Sprintf(" %s %s %s %4d %9s",
			cell(c.Color, 10), cell(c.Type, 14), cell(c.Set, 16), c.ManaCost, formatPrice(c.Price.Decimal))
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

func describeFilter(f shop.Filter) string {
	var parts []string
	if q := strings.TrimSpace(f.Query); q != "" {
		parts = append(parts, "/"+truncate(q, 18))
	}
	if f.Rarity != "" {
		parts = append(parts, "rarity="+string(f.Rarity))
	}
	if f.Color != "" {
		parts = append(parts, "color="+f.Color)
	}
	if f.Type != "" {
		parts = append(parts, "type="+f.Type)
	}
	if f.Set != "" {
		parts = append(parts, "set="+f.Set)
	}
	return strings.Join(parts, " ")
}
