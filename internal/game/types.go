package game

import (
	"sync"
	"time"
)

type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// JudgeMode selects how the judge role rotates between rounds.
type JudgeMode string

const (
	// JudgeModeNominated builds the rotation from each judge's nomination
	// of a successor; the order locks once the cycle closes.
	JudgeModeNominated JudgeMode = "nominated"
	// JudgeModeOrdered rotates by join order from the first round.
	JudgeModeOrdered JudgeMode = "ordered"
)

// End reasons recorded on the state document when a session finishes.
const (
	EndMaxScoreReached = "max_score_reached"
	EndNoPromptCards   = "no_prompt_cards_left"
	EndedByHost        = "ended_by_host"
)

const (
	MinPlayers = 3
	MaxPlayers = 20 // including the bot

	DefaultMaxScore = 8
	DefaultHandSize = 10

	maxScoreLimit = 20
	minHandSize   = 3
	maxHandSize   = 15

	// Pool size warnings surfaced by PreviewCardPool.
	LowResponseThreshold = 200
	LowPromptThreshold   = 25

	codeLength      = 5
	notificationTTL = time.Minute

	// Distinct voters required to skip an unresponsive judge.
	skipVoteThreshold = 2

	botName = "Rando"
)

type Settings struct {
	MaxScore             int       `json:"max_score"`
	HandSize             int       `json:"hand_size"`
	JudgeMode            JudgeMode `json:"judge_mode"`
	RandoEnabled         bool      `json:"rando_enabled"`
	UnlimitedHandRefresh bool      `json:"unlimited_hand_refresh"`
}

type Player struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Score         int       `json:"score"`
	Hand          []string  `json:"hand"`
	IsCreator     bool      `json:"is_creator"`
	IsJudge       bool      `json:"is_judge"`
	Paused        bool      `json:"paused"`
	IsBot         bool      `json:"is_bot"`
	HandRefreshed bool      `json:"hand_refreshed,omitempty"`
	JoinedAt      time.Time `json:"joined_at"`
}

// Submission is one player's answer for the current prompt. CardIDs length
// always equals the prompt's blank count.
type Submission struct {
	PlayerID string   `json:"player_id"`
	CardIDs  []string `json:"card_ids"`
}

// PromptCard is the active prompt, hydrated once at draw time.
type PromptCard struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Blanks int    `json:"blanks"`
}

// SkippedPlayer records a player omitted from the judge order when the
// nomination cycle closed without them.
type SkippedPlayer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Rotation is the judge-order builder. While unlocked, Order is the strict
// prefix assembled from nominations; once locked it is a fixed cyclic
// permutation of the players present at lock time.
type Rotation struct {
	Order   []string        `json:"order"`
	Locked  bool            `json:"locked"`
	Next    string          `json:"next,omitempty"` // pending nomination
	Skipped []SkippedPlayer `json:"skipped,omitempty"`
}

type Notification struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HistoryEntry freezes one resolved round.
type HistoryEntry struct {
	Round       int          `json:"round"`
	JudgeID     string       `json:"judge_id"`
	WinnerID    string       `json:"winner_id"`
	Prompt      PromptCard   `json:"prompt"`
	Submissions []Submission `json:"submissions"`
}

// State is the authoritative mutable payload for one session.
type State struct {
	Settings      Settings       `json:"settings"`
	Phase         Phase          `json:"phase"`
	CreatorID     string         `json:"creator_id"`
	Players       []*Player      `json:"players"`
	Rotation      Rotation       `json:"rotation"`
	JudgeID       string         `json:"judge_id,omitempty"`
	Prompt        *PromptCard    `json:"prompt,omitempty"`
	Round         int            `json:"round"`
	Submissions   []Submission   `json:"submissions"`
	EarlyReview   bool           `json:"early_review,omitempty"`
	SkipVotes     []string       `json:"skip_votes,omitempty"`
	Notifications []Notification `json:"notifications,omitempty"`
	WinnerID      string         `json:"winner_id,omitempty"`
	EndReason     string         `json:"end_reason,omitempty"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
}

// Pile holds card IDs split by kind. Draws come from the front, discards go
// to the back.
type Pile struct {
	Response []string `json:"response"`
	Prompt   []string `json:"prompt"`
}

// Session is the full persisted record for one game, plus the in-process
// mutex that serializes transitions against it.
type Session struct {
	Code            string         `json:"code"`
	CategoryFilters []string       `json:"category_filters"`
	Draw            Pile           `json:"draw_pile"`
	Discard         Pile           `json:"discard_pile"`
	State           State          `json:"state_document"`
	History         []HistoryEntry `json:"round_history"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Version         uint64         `json:"version"`

	mu sync.Mutex
}

func (s *State) player(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *State) bot() *Player {
	for _, p := range s.Players {
		if p.IsBot {
			return p
		}
	}
	return nil
}

// humans returns the non-bot players in join order.
func (s *State) humans() []*Player {
	out := make([]*Player, 0, len(s.Players))
	for _, p := range s.Players {
		if !p.IsBot {
			out = append(out, p)
		}
	}
	return out
}

func (s *State) submission(playerID string) *Submission {
	for i := range s.Submissions {
		if s.Submissions[i].PlayerID == playerID {
			return &s.Submissions[i]
		}
	}
	return nil
}

func (s *State) notify(msg string, now time.Time) {
	s.pruneNotifications(now)
	s.Notifications = append(s.Notifications, Notification{
		Message:   msg,
		ExpiresAt: now.Add(notificationTTL),
	})
}

// pruneNotifications drops expired entries in place.
func (s *State) pruneNotifications(now time.Time) {
	kept := s.Notifications[:0]
	for _, n := range s.Notifications {
		if n.ExpiresAt.After(now) {
			kept = append(kept, n)
		}
	}
	s.Notifications = kept
}
