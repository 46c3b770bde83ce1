// Package notify holds the notifications shown in the header badge: the
// server-persisted ones for the signed-in user plus ephemeral ones raised by
// this client (sale notices after a checkout, for example).
package notify

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/five82/manavault/internal/logging"
	"github.com/five82/manavault/internal/market"
)

// Center owns the notification list.
type Center struct {
	api    market.NotificationAPI
	logger *zap.Logger
	now    func() time.Time

	mu    sync.RWMutex
	notes []market.Notification
}

// New builds an empty Center.
func New(api market.NotificationAPI, logger *zap.Logger) *Center {
	return &Center{api: api, logger: logging.OrNop(logger), now: time.Now}
}

// Fetch replaces the list with the server's notifications for userID. On
// failure, or with an empty userID, the list is emptied.
func (c *Center) Fetch(ctx context.Context, userID string) error {
	if userID == "" {
		c.Reset()
		return nil
	}
	notes, err := c.api.FetchNotifications(ctx, userID)
	if err != nil {
		c.logger.Warn("notifications load failed", zap.String("user", userID), zap.Error(err))
		c.Reset()
		return fmt.Errorf("fetch notifications: %w", err)
	}
	c.mu.Lock()
	c.notes = notes
	c.mu.Unlock()
	return nil
}

// Add prepends an ephemeral notification for userID. It is never sent to the
// server and disappears on the next Fetch.
func (c *Center) Add(userID, message string) market.Notification {
	n := market.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Date:      c.now().Format(time.RFC3339),
		Ephemeral: true,
	}
	c.mu.Lock()
	c.notes = append([]market.Notification{n}, c.notes...)
	c.mu.Unlock()
	return n
}

// MarkRead flags id as read locally and reports whether it was found.
func (c *Center) MarkRead(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.notes {
		if c.notes[i].ID == id {
			next := slices.Clone(c.notes)
			next[i].Read = true
			c.notes = next
			return true
		}
	}
	return false
}

// MarkAllRead flags every notification as read.
func (c *Center) MarkAllRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := slices.Clone(c.notes)
	for i := range next {
		next[i].Read = true
	}
	c.notes = next
}

// UnreadCount counts unread notifications.
func (c *Center) UnreadCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, note := range c.notes {
		if !note.Read {
			n++
		}
	}
	return n
}

// All returns every notification, newest first.
func (c *Center) All() []market.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.notes)
}

// For returns the notifications addressed to userID.
func (c *Center) For(userID string) []market.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []market.Notification
	for _, note := range c.notes {
		if note.UserID == userID {
			out = append(out, note)
		}
	}
	return out
}

// Reset empties the list.
func (c *Center) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = nil
}
