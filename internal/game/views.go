package game

import (
	"context"
	"hash/fnv"
	"sort"
)

// CardView is a hydrated card as shown to a client.
type CardView struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Blanks int    `json:"blanks,omitempty"`
}

type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	IsCreator bool   `json:"is_creator"`
	IsJudge   bool   `json:"is_judge"`
	Paused    bool   `json:"paused"`
	IsBot     bool   `json:"is_bot"`
	Submitted bool   `json:"submitted"`
	HandCount int    `json:"hand_count"`
}

// SubmissionView hides the author until a winner has been picked.
type SubmissionView struct {
	PlayerID   string     `json:"player_id,omitempty"`
	PlayerName string     `json:"player_name,omitempty"`
	Cards      []CardView `json:"cards"`
}

type RotationView struct {
	Order   []string        `json:"order"`
	Locked  bool            `json:"locked"`
	Skipped []SkippedPlayer `json:"skipped,omitempty"`
}

type YouView struct {
	ID        string     `json:"id"`
	Hand      []CardView `json:"hand"`
	Submitted bool       `json:"submitted"`
	IsJudge   bool       `json:"is_judge"`
	IsCreator bool       `json:"is_creator"`
}

// GameView is the actor-filtered projection of a session: the caller sees
// only their own hand, and submissions stay anonymous until judged.
type GameView struct {
	Code          string           `json:"code"`
	Phase         Phase            `json:"phase"`
	Settings      Settings         `json:"settings"`
	Round         int              `json:"round"`
	JudgeID       string           `json:"judge_id,omitempty"`
	Prompt        *CardView        `json:"prompt,omitempty"`
	Players       []PlayerView     `json:"players"`
	You           *YouView         `json:"you,omitempty"`
	Submissions   []SubmissionView `json:"submissions,omitempty"`
	WinnerPicked  bool             `json:"winner_picked"`
	Rotation      RotationView     `json:"rotation"`
	SkipVoteCount int              `json:"skip_vote_count"`
	Notifications []Notification   `json:"notifications,omitempty"`
	WinnerID      string           `json:"winner_id,omitempty"`
	EndReason     string           `json:"end_reason,omitempty"`
	RoundHistory  int              `json:"rounds_played"`
}

// View builds the state document as seen by actorID. Spectators (unknown
// actor IDs) get the public projection with no hand.
func (m *Manager) View(ctx context.Context, code, actorID string) (GameView, error) {
	var view GameView
	err := m.read(ctx, code, func(s *Session) error {
		st := &s.State
		now := nowUTC()
		var notes []Notification
		for _, n := range st.Notifications {
			if n.ExpiresAt.After(now) {
				notes = append(notes, n)
			}
		}

		view = GameView{
			Code:          s.Code,
			Phase:         st.Phase,
			Settings:      st.Settings,
			Round:         st.Round,
			JudgeID:       st.JudgeID,
			WinnerPicked:  roundResolved(s),
			SkipVoteCount: len(st.SkipVotes),
			Notifications: notes,
			WinnerID:      st.WinnerID,
			EndReason:     st.EndReason,
			RoundHistory:  len(s.History),
			Rotation: RotationView{
				Order:   append([]string(nil), st.Rotation.Order...),
				Locked:  st.Rotation.Locked,
				Skipped: append([]SkippedPlayer(nil), st.Rotation.Skipped...),
			},
		}
		if st.Prompt != nil {
			view.Prompt = &CardView{ID: st.Prompt.ID, Text: st.Prompt.Text, Blanks: st.Prompt.Blanks}
		}

		for _, p := range st.Players {
			view.Players = append(view.Players, PlayerView{
				ID:        p.ID,
				Name:      p.Name,
				Score:     p.Score,
				IsCreator: p.IsCreator,
				IsJudge:   p.ID == st.JudgeID && st.Phase == PhasePlaying,
				Paused:    p.Paused,
				IsBot:     p.IsBot,
				Submitted: st.submission(p.ID) != nil,
				HandCount: len(p.Hand),
			})
		}

		if you := st.player(actorID); you != nil && !you.IsBot {
			yv := &YouView{
				ID:        you.ID,
				Submitted: st.submission(you.ID) != nil,
				IsJudge:   you.ID == st.JudgeID && st.Phase == PhasePlaying,
				IsCreator: you.ID == st.CreatorID,
			}
			for _, id := range you.Hand {
				card := m.cards.Resolve(id)
				yv.Hand = append(yv.Hand, CardView{ID: id, Text: card.Text})
			}
			view.You = yv
		}

		view.Submissions = m.submissionViews(s)
		return nil
	})
	return view, err
}

// submissionViews decides what the caller may see of the active round:
// nothing until the judge reviews (all answers in, or early review), then
// anonymous entries in a per-round shuffled order, and finally attributed
// entries once the winner is picked. Everyone at the table sees the same
// projection.
func (m *Manager) submissionViews(s *Session) []SubmissionView {
	st := &s.State
	if len(st.Submissions) == 0 {
		return nil
	}

	picked := roundResolved(s)
	if !picked && !st.EarlyReview && !allSubmitted(st) {
		return nil
	}

	subs := make([]Submission, len(st.Submissions))
	copy(subs, st.Submissions)
	if !picked {
		// Stable pseudo-random presentation that leaks nothing about
		// arrival order and survives reloads within the round.
		sort.Slice(subs, func(i, j int) bool {
			return anonRank(s.Code, st.Round, subs[i].PlayerID) < anonRank(s.Code, st.Round, subs[j].PlayerID)
		})
	}

	views := make([]SubmissionView, 0, len(subs))
	for _, sub := range subs {
		sv := SubmissionView{}
		if picked {
			sv.PlayerID = sub.PlayerID
			if p := st.player(sub.PlayerID); p != nil {
				sv.PlayerName = p.Name
			}
		}
		for _, id := range sub.CardIDs {
			card := m.cards.Resolve(id)
			sv.Cards = append(sv.Cards, CardView{ID: id, Text: card.Text})
		}
		views = append(views, sv)
	}
	return views
}

// allSubmitted reports whether every eligible player has answered.
func allSubmitted(st *State) bool {
	for _, p := range st.Players {
		if p.IsBot || p.Paused || p.ID == st.JudgeID {
			continue
		}
		if st.submission(p.ID) == nil {
			return false
		}
	}
	return len(st.Submissions) > 0
}

func anonRank(code string, round int, playerID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(code))
	_, _ = h.Write([]byte{byte(round), byte(round >> 8)})
	_, _ = h.Write([]byte(playerID))
	return h.Sum64()
}
