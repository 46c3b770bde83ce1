package shop

import (
	"github.com/shopspring/decimal"

	"github.com/five82/manavault/internal/market"
)

const placeholderImage = "/sp_res5myxp7z.jpg"

// DefaultSets is the set list used until one has been cached.
func DefaultSets() []string {
	return []string{
		"Colección Básica 2024",
		"Alpha",
		"Beta",
		"Unlimited",
		"Arabian Nights",
		"Antiquities",
		"Legends",
		"The Dark",
	}
}

// DefaultCatalog is the built-in catalog shown when the backend has never
// been reached.
func DefaultCatalog() []market.Card {
	return []market.Card{
		{
			ID:          "1",
			Name:        "Lightning Bolt",
			Image:       placeholderImage,
			Rarity:      market.RarityCommon,
			Color:       "Red",
			Type:        "Spell",
			Set:         "Colección Básica 2024",
			Description: "Deals 3 damage to any target.",
			Price:       market.Price{Decimal: decimal.NewFromInt(5990)},
			ManaCost:    1,
		},
		{
			ID:          "2",
			Name:        "Black Lotus",
			Image:       placeholderImage,
			Rarity:      market.RarityLegendary,
			Color:       "Colorless",
			Type:        "Artifact",
			Set:         "Alpha",
			Description: "Add three mana of any one color to your mana pool.",
			Price:       market.Price{Decimal: decimal.NewFromInt(250000000000000)},
			ManaCost:    0,
		},
		{
			ID:          "3",
			Name:        "Serra Angel",
			Image:       placeholderImage,
			Rarity:      market.RarityRare,
			Color:       "White",
			Type:        "Creature",
			Set:         "Colección Básica 2024",
			Description: "Flying, vigilance.",
			Price:       market.Price{Decimal: decimal.NewFromInt(12990)},
			ManaCost:    5,
		},
		{
			ID:          "4",
			Name:        "Counterspell",
			Image:       placeholderImage,
			Rarity:      market.RarityUncommon,
			Color:       "Blue",
			Type:        "Land",
			Set:         "Legends",
			Description: "Counter target spell.",
			Price:       market.Price{Decimal: decimal.NewFromInt(8500)},
			ManaCost:    2,
		},
		{
			ID:          "5",
			Name:        "Giant Growth",
			Image:       placeholderImage,
			Rarity:      market.RarityCommon,
			Color:       "Green",
			Type:        "Creature",
			Set:         "Colección Básica 2024",
			Description: "Target creature gets +3/+3 until end of turn.",
			Price:       market.Price{Decimal: decimal.NewFromInt(2000)},
			ManaCost:    1,
		},
	}
}
