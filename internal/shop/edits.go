package shop

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/five82/manavault/internal/kvstore"
	"github.com/five82/manavault/internal/market"
)

// edits records storefront changes made on this device. The backend has no
// write endpoints for the catalog or listings, so every fetch is merged
// with them before it is published.
type edits struct {
	// Cards holds added and updated catalog cards, newest first.
	Cards []market.Card `json:"cards,omitempty"`
	// Deleted holds catalog ids removed locally.
	Deleted []string `json:"deleted,omitempty"`
	// Listings holds listings posted locally, newest first.
	Listings []market.Listing `json:"listings,omitempty"`
	// Withdrawn holds listing ids removed locally.
	Withdrawn []string `json:"withdrawn,omitempty"`
}

func (e *edits) putCard(c market.Card) {
	e.Cards = slices.DeleteFunc(e.Cards, func(x market.Card) bool { return x.ID == c.ID })
	e.Cards = append([]market.Card{c}, e.Cards...)
	e.Deleted = slices.DeleteFunc(e.Deleted, func(id string) bool { return id == c.ID })
}

func (e *edits) deleteCard(id string) {
	e.Cards = slices.DeleteFunc(e.Cards, func(x market.Card) bool { return x.ID == id })
	if !slices.Contains(e.Deleted, id) {
		e.Deleted = append(e.Deleted, id)
	}
}

func (e *edits) addListing(l market.Listing) {
	e.Listings = append([]market.Listing{l}, e.Listings...)
}

func (e *edits) withdraw(id string) {
	e.Listings = slices.DeleteFunc(e.Listings, func(x market.Listing) bool { return x.ID == id })
	if !slices.Contains(e.Withdrawn, id) {
		e.Withdrawn = append(e.Withdrawn, id)
	}
}

// sold drops local listings of the purchased cards.
func (e *edits) sold(items []market.CartItem) {
	e.Listings = slices.DeleteFunc(e.Listings, func(l market.Listing) bool {
		return slices.ContainsFunc(items, func(it market.CartItem) bool { return it.Card.ID == l.Card.ID })
	})
}

// catalog overlays the edits on remote. Merging an already merged catalog
// returns it unchanged.
func (e *edits) catalog(remote []market.Card) []market.Card {
	byID := make(map[string]market.Card, len(e.Cards))
	for _, c := range e.Cards {
		byID[c.ID] = c
	}
	out := make([]market.Card, 0, len(remote)+len(e.Cards))
	for _, c := range e.Cards {
		if !slices.ContainsFunc(remote, func(r market.Card) bool { return r.ID == c.ID }) {
			out = append(out, c)
		}
	}
	for _, c := range remote {
		if slices.Contains(e.Deleted, c.ID) {
			continue
		}
		if local, ok := byID[c.ID]; ok {
			c = local
		}
		out = append(out, c)
	}
	return out
}

// listings overlays the edits on remote. Merging already merged listings
// returns them unchanged.
func (e *edits) listings(remote []market.Listing) []market.Listing {
	out := make([]market.Listing, 0, len(remote)+len(e.Listings))
	for _, l := range e.Listings {
		if !slices.ContainsFunc(remote, func(r market.Listing) bool { return r.ID == l.ID }) {
			out = append(out, l)
		}
	}
	for _, l := range remote {
		if !slices.Contains(e.Withdrawn, l.ID) {
			out = append(out, l)
		}
	}
	return out
}

// loadEdits reads the saved edits once. Callers hold s.mu.
func (s *Service) loadEdits(ctx context.Context) {
	if s.editsLoaded {
		return
	}
	s.editsLoaded = true
	if s.cache == nil {
		return
	}
	saved, ok, err := kvstore.GetJSON[edits](ctx, s.cache, kvstore.KeyLocalEdits)
	if err != nil {
		s.logger.Warn("load local edits", zap.Error(err))
		return
	}
	if ok {
		s.local = saved
	}
}

// saveEdits persists the edits. Callers hold s.mu.
func (s *Service) saveEdits(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return kvstore.SetJSON(ctx, s.cache, kvstore.KeyLocalEdits, s.local)
}
