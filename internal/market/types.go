package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Price is an amount of money. It travels as a plain JSON number.
type Price struct {
	decimal.Decimal
}

// RequirePrice parses s and panics if it is not a number. It is meant for
// literals.
func RequirePrice(s string) Price {
	return Price{Decimal: decimal.RequireFromString(s)}
}

func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Price) UnmarshalJSON(data []byte) error {
	return p.Decimal.UnmarshalJSON(data)
}

// Rarity grades a catalog card.
type Rarity string

const (
	RarityCommon    Rarity = "Common"
	RarityUncommon  Rarity = "Uncommon"
	RarityRare      Rarity = "Rare"
	RarityLegendary Rarity = "Legendary"
)

// Rarities lists every rarity from most to least common.
var Rarities = []Rarity{RarityCommon, RarityUncommon, RarityRare, RarityLegendary}

// Valid reports whether r is one of the known rarities.
func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityUncommon, RarityRare, RarityLegendary:
		return true
	}
	return false
}

// CardSource records how a card reached a collection or cart.
type CardSource string

const (
	SourceCatalog     CardSource = "catalog"
	SourceMarketplace CardSource = "marketplace"
	SourcePurchase    CardSource = "purchase"
)

// User is an account as returned by the auth endpoints.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar,omitempty"`
	IsOnline bool   `json:"isOnline"`
	// Password mirrors what the backend returns and is cached in plaintext
	// with the session snapshot.
	Password string `json:"password,omitempty"`
}

// Card is a catalog entry.
type Card struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Image       string          `json:"image"`
	Rarity      Rarity          `json:"rarity"`
	Color       string          `json:"color"`
	Type        string          `json:"type"`
	Set         string          `json:"set"`
	Description string          `json:"description"`
	Price       Price           `json:"price"`
	ManaCost    int             `json:"manaCost"`
	Condition   string          `json:"condition,omitempty"`
}

// CollectionCard is a Card owned by a user. ID identifies the owned
// instance; OriginalID points back at the catalog card it was copied from.
type CollectionCard struct {
	Card
	OriginalID string     `json:"originalId"`
	Source     CardSource `json:"source"`
	Quantity   int        `json:"quantity"`
	IsFavorite bool       `json:"isFavorite"`
	AddedAt    string     `json:"addedAt"`
}

// Count returns the owned quantity, treating a missing quantity as one copy.
func (c CollectionCard) Count() int {
	if c.Quantity < 1 {
		return 1
	}
	return c.Quantity
}

// LineValue is price times quantity.
func (c CollectionCard) LineValue() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Count())))
}

// ParsedAddedAt returns AddedAt as time.Time when it parses.
func (c CollectionCard) ParsedAddedAt() time.Time {
	return parseTime(c.AddedAt)
}

// Listing is a card offered for sale by another user. Card is a snapshot
// taken when the listing was posted.
type Listing struct {
	ID     string          `json:"id"`
	Card   Card            `json:"card"`
	Seller User            `json:"seller"`
	Price  Price           `json:"price"`
}

// CartItem is a pending purchase line.
type CartItem struct {
	Card     Card       `json:"card"`
	Quantity int        `json:"quantity"`
	Source   CardSource `json:"source"`
}

// Subtotal is card price times quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Card.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Notification is a message addressed to a user. Ephemeral notifications
// are generated by this client and never sent to or fetched from the server.
type Notification struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	Date      string `json:"date"`
	Ephemeral bool   `json:"-"`
}

// ParsedDate returns Date as time.Time when it parses.
func (n Notification) ParsedDate() time.Time {
	return parseTime(n.Date)
}

// RegisterRequest carries the fields needed to create an account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	EmailOrUsername string `json:"emailOrUsername"`
	Password        string `json:"password"`
}

type userResponse struct {
	User User `json:"user"`
}

type changePasswordRequest struct {
	UserID          string `json:"userId"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

type checkoutRequest struct {
	UserID         string     `json:"userId"`
	PurchasedItems []CartItem `json:"purchasedItems"`
}

type checkoutResponse struct {
	RemainingListings []Listing `json:"remainingListings"`
}

type cartAddRequest struct {
	UserID   string     `json:"userId"`
	Card     Card       `json:"card"`
	Quantity int        `json:"quantity"`
	Source   CardSource `json:"source"`
}

type cartRemoveRequest struct {
	UserID   string `json:"userId"`
	CardID   string `json:"cardId"`
	Quantity int    `json:"quantity"`
}

type collectionAddRequest struct {
	UserID   string     `json:"userId"`
	Card     Card       `json:"card"`
	Source   CardSource `json:"source"`
	Quantity int        `json:"quantity"`
}

type collectionRemoveRequest struct {
	UserID           string `json:"userId"`
	CardID           string `json:"cardId"`
	QuantityToRemove int    `json:"quantityToRemove"`
}

type collectionUpdateRequest struct {
	UserID      string         `json:"userId"`
	UpdatedCard CollectionCard `json:"updatedCard"`
}

type collectionCardRequest struct {
	UserID string `json:"userId"`
	CardID string `json:"cardId"`
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
