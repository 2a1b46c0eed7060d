package cards

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"github.com/google/uuid"
)

// PlaceholderText is shown for card IDs the catalog no longer knows about.
const PlaceholderText = "(missing card)"

// Catalog is an in-memory Resolver. Cards are added once at startup (or per
// test) and read concurrently afterwards.
type Catalog struct {
	mu    sync.RWMutex
	cards map[string]Card
	order []string // insertion order, keeps ShuffledIDs deterministic under a seeded shuffle
}

func NewCatalog() *Catalog {
	return &Catalog{cards: make(map[string]Card)}
}

// Add inserts a card and returns its generated ID.
func (c *Catalog) Add(kind Kind, text string, blanks int, tags ...string) string {
	if kind == KindResponse {
		blanks = 0
	} else if blanks < 1 {
		blanks = 1
	}
	card := Card{ID: uuid.NewString(), Kind: kind, Text: text, Blanks: blanks, Tags: tags}
	c.mu.Lock()
	c.cards[card.ID] = card
	c.order = append(c.order, card.ID)
	c.mu.Unlock()
	return card.ID
}

func (c *Catalog) ShuffledIDs(kind Kind, filters []string) []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.order))
	for _, id := range c.order {
		card := c.cards[id]
		if card.Kind == kind && matches(card, filters) {
			ids = append(ids, id)
		}
	}
	c.mu.RUnlock()
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids
}

func (c *Catalog) Resolve(id string) Card {
	c.mu.RLock()
	card, ok := c.cards[id]
	c.mu.RUnlock()
	if !ok {
		return Card{ID: id, Kind: KindResponse, Text: PlaceholderText, Blanks: 1}
	}
	return card
}

func (c *Catalog) Counts(filters []string) Counts {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var n Counts
	for _, card := range c.cards {
		if !matches(card, filters) {
			continue
		}
		switch card.Kind {
		case KindResponse:
			n.Response++
		case KindPrompt:
			n.Prompt++
		}
	}
	return n
}

// matches reports whether a card passes the category filters. An empty
// filter list selects the whole catalog; otherwise any overlapping tag is a
// match.
func matches(card Card, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		for _, t := range card.Tags {
			if f == t {
				return true
			}
		}
	}
	return false
}

// LoadFile seeds the catalog from a JSON array of cards. Existing IDs in the
// file are kept so content updates stay stable across restarts.
func (c *Catalog) LoadFile(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read card file: %w", err)
	}
	var entries []Card
	if err := json.Unmarshal(raw, &entries); err != nil {
		return 0, fmt.Errorf("parse card file: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	added := 0
	for _, card := range entries {
		if card.Text == "" {
			continue
		}
		if card.ID == "" {
			card.ID = uuid.NewString()
		}
		if card.Kind == KindResponse {
			card.Blanks = 0
		} else if card.Blanks < 1 {
			card.Blanks = 1
		}
		if _, dup := c.cards[card.ID]; dup {
			continue
		}
		c.cards[card.ID] = card
		c.order = append(c.order, card.ID)
		added++
	}
	return added, nil
}
