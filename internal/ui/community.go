package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/manavault/internal/collection"
	"github.com/five82/manavault/internal/market"
	"github.com/five82/manavault/internal/view"
)

// member is a community entry derived from the marketplace.
type member struct {
	user     market.User
	listings int
}

// members lists every seller with an open listing, in first-seen order.
func members(listings []market.Listing) []member {
	var out []member
	index := map[string]int{}
	for _, l := range listings {
		if l.Seller.ID == "" {
			continue
		}
		if i, ok := index[l.Seller.ID]; ok {
			out[i].listings++
			continue
		}
		index[l.Seller.ID] = len(out)
		out = append(out, member{user: l.Seller, listings: 1})
	}
	return out
}

// listingsBy returns the listings posted by userID.
func listingsBy(listings []market.Listing, userID string) []market.Listing {
	var out []market.Listing
	for _, l := range listings {
		if l.Seller.ID == userID {
			out = append(out, l)
		}
	}
	return out
}

type otherCollectionMsg struct {
	userID string
	cards  []market.CollectionCard
	err    error
}

func fetchCollectionCmd(ctx context.Context, coll *collection.Manager, userID string) tea.Cmd {
	return func() tea.Msg {
		cards, err := coll.Fetch(ctx, userID)
		return otherCollectionMsg{userID: userID, cards: cards, err: err}
	}
}

func (m *Model) handleCommunityKey(msg tea.KeyMsg) tea.Cmd {
	list := members(m.snapshot.Listings)
	if m.moveCursor(msg, view.Community, len(list)) || len(list) == 0 {
		return nil
	}
	u := list[clamp(m.cursors[view.Community], len(list))].user
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.nav.ViewUserCollection(u)
		m.cursors[view.OtherCollection] = 0
		m.other = otherState{userID: u.ID, loading: true}
		return fetchCollectionCmd(m.ctx, m.collection, u.ID)
	case key.Matches(msg, m.keys.History):
		m.nav.ViewUserHistory(u)
		m.cursors[view.UserHistory] = 0
	}
	return nil
}

func (m *Model) handleHistoryKey(msg tea.KeyMsg) tea.Cmd {
	u := m.nav.State().ViewedUser
	if u == nil {
		return nil
	}
	listings := listingsBy(m.snapshot.Listings, u.ID)
	if m.moveCursor(msg, view.UserHistory, len(listings)) || len(listings) == 0 {
		return nil
	}
	return m.handleListingKey(msg, listings[clamp(m.cursors[view.UserHistory], len(listings))])
}

func (m Model) renderCommunity() string {
	styles := m.theme.Styles()
	list := members(m.snapshot.Listings)
	me := m.session.UserID()

	var b strings.Builder
	b.WriteString(styles.MutedText.Render(fmt.Sprintf("%d traders", len(list))))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(fmt.Sprintf("  %s %s %8s", cell("Name", 24), cell("Username", 18), "Listings")))
	b.WriteString("\n")
	if len(list) == 0 {
		b.WriteString(styles.MutedText.Render("  No traders yet."))
		return b.String()
	}

	cursor := clamp(m.cursors[view.Community], len(list))
	start, end := window(cursor, len(list), m.contentHeight()-2)
	for i := start; i < end; i++ {
		u := list[i].user
		status := styles.FaintText.Render("○")
		if u.IsOnline {
			status = styles.SuccessText.Render("●")
		}
		username := "@" + u.Username
		if u.ID == me {
			username += " (you)"
		}
		row := fmt.Sprintf("%s %s %8d", cell(displayName(u), 24), cell(username, 18), list[i].listings)
		if i == cursor {
			b.WriteString(styles.Selected.Render("▸ "+row) + " " + status)
		} else {
			b.WriteString("  " + styles.Text.Render(row) + " " + status)
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderOtherCollection(u *market.User) string {
	styles := m.theme.Styles()
	if u == nil {
		return styles.MutedText.Render("No trader selected.")
	}
	var b strings.Builder
	b.WriteString(styles.AccentText.Render(displayName(*u) + "'s collection"))
	b.WriteString("\n")
	switch {
	case m.other.loading:
		b.WriteString(styles.MutedText.Render("Loading..."))
	case m.other.err != nil:
		b.WriteString(styles.DangerText.Render(m.other.err.Error()))
	default:
		b.WriteString(m.renderOwnedTable(m.other.cards, m.cursors[view.OtherCollection], m.contentHeight()-1, "Nothing here yet."))
	}
	return b.String()
}

func (m Model) renderHistory(u *market.User) string {
	styles := m.theme.Styles()
	if u == nil {
		return styles.MutedText.Render("No trader selected.")
	}
	listings := listingsBy(m.snapshot.Listings, u.ID)
	var b strings.Builder
	b.WriteString(styles.AccentText.Render(fmt.Sprintf("%s's listings", displayName(*u))))
	b.WriteString("\n")
	b.WriteString(m.renderListingTable(listings, m.cursors[view.UserHistory], m.contentHeight()-1, "No open listings."))
	return b.String()
}
