package cards

// Kind separates the two card piles: prompts set the round's theme, responses
// fill the prompt's blanks.
type Kind string

const (
	KindPrompt   Kind = "prompt"
	KindResponse Kind = "response"
)

// Card is a single catalog entry. Blanks is zero for response cards and at
// least one for prompt cards.
type Card struct {
	ID     string   `json:"id"`
	Kind   Kind     `json:"kind"`
	Text   string   `json:"text"`
	Blanks int      `json:"blanks,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// Counts reports pool sizes per kind for a given filter selection.
type Counts struct {
	Response int `json:"response"`
	Prompt   int `json:"prompt"`
}

// Resolver is the card pool contract the game engine consumes. ShuffledIDs
// returns a freshly shuffled sequence of card IDs matching the filters.
// Resolve never fails: unknown IDs hydrate to a placeholder card so a stale
// ID can never break a round in progress.
type Resolver interface {
	ShuffledIDs(kind Kind, filters []string) []string
	Resolve(id string) Card
	Counts(filters []string) Counts
}
