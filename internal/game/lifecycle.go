package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/benjamw/cardparty/internal/cards"
	"github.com/benjamw/cardparty/internal/store"
)

var nameRe = regexp.MustCompile(`^[\pL\pN][\pL\pN '._-]{0,23}$`)

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !nameRe.MatchString(name) {
		return "", errf(KindValidation, "player name must be 1-24 characters: letters, digits, spaces, apostrophes, dots, underscores or dashes")
	}
	return name, nil
}

func normalizeSettings(in Settings) (Settings, error) {
	out := in
	if out.MaxScore == 0 {
		out.MaxScore = DefaultMaxScore
	}
	if out.HandSize == 0 {
		out.HandSize = DefaultHandSize
	}
	if out.JudgeMode == "" {
		out.JudgeMode = JudgeModeNominated
	}
	if out.MaxScore < 1 || out.MaxScore > maxScoreLimit {
		return out, errf(KindValidation, "max score must be between 1 and %d", maxScoreLimit)
	}
	if out.HandSize < minHandSize || out.HandSize > maxHandSize {
		return out, errf(KindValidation, "hand size must be between %d and %d", minHandSize, maxHandSize)
	}
	if out.JudgeMode != JudgeModeNominated && out.JudgeMode != JudgeModeOrdered {
		return out, errf(KindValidation, "unknown judge mode %q", out.JudgeMode)
	}
	return out, nil
}

// CreateSession allocates a fresh session in the waiting phase with the
// creator as its only player, and seeds both draw piles from the card pool.
func (m *Manager) CreateSession(ctx context.Context, creatorName string, filters []string, settings Settings) (code, creatorID string, err error) {
	name, err := validateName(creatorName)
	if err != nil {
		return "", "", err
	}
	settings, err = normalizeSettings(settings)
	if err != nil {
		return "", "", err
	}
	counts := m.cards.Counts(filters)
	if counts.Response == 0 || counts.Prompt == 0 {
		return "", "", errf(KindValidation, "selected categories contain no playable cards")
	}

	code, err = m.allocateCode(ctx)
	if err != nil {
		return "", "", err
	}

	now := nowUTC()
	creator := &Player{
		ID:        uuid.NewString(),
		Name:      name,
		IsCreator: true,
		JoinedAt:  now,
	}
	s := &Session{
		Code:            code,
		CategoryFilters: filters,
		Draw: Pile{
			Response: m.cards.ShuffledIDs(cards.KindResponse, filters),
			Prompt:   m.cards.ShuffledIDs(cards.KindPrompt, filters),
		},
		State: State{
			Settings:    settings,
			Phase:       PhaseWaiting,
			CreatorID:   creator.ID,
			Players:     []*Player{creator},
			Submissions: []Submission{},
		},
		History:   []HistoryEntry{},
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return "", "", fmt.Errorf("encode session %s: %w", code, err)
	}
	rec := store.Record{Code: code, Payload: payload, Version: 1, UpdatedAt: now}
	if err := m.store.Save(ctx, rec); err != nil {
		return "", "", fmt.Errorf("persist session %s: %w", code, err)
	}

	m.mu.Lock()
	m.sessions[code] = s
	m.mu.Unlock()

	log.Info().Str("code", code).Str("creator", name).Msg("session created")
	return code, creator.ID, nil
}

// allocateCode picks a short code not currently in use.
func (m *Manager) allocateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 100; attempt++ {
		code := randomCode(codeLength)
		m.mu.RLock()
		_, live := m.sessions[code]
		m.mu.RUnlock()
		if live {
			continue
		}
		_, err := m.store.Load(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("check code %s: %w", code, err)
		}
	}
	return "", fmt.Errorf("could not allocate a unique session code")
}

// JoinResult is the outcome of a join attempt. AlreadyStarted is the
// non-error redirect signal for sessions past the waiting phase.
type JoinResult struct {
	PlayerID       string   `json:"player_id,omitempty"`
	AlreadyStarted bool     `json:"already_started,omitempty"`
	PlayerNames    []string `json:"player_names,omitempty"`
}

func (m *Manager) Join(ctx context.Context, code, playerName string) (JoinResult, error) {
	var res JoinResult
	err := m.update(ctx, code, func(s *Session) error {
		if s.State.Phase != PhaseWaiting {
			names := make([]string, 0, len(s.State.Players))
			for _, p := range s.State.Players {
				names = append(names, p.Name)
			}
			res = JoinResult{AlreadyStarted: true, PlayerNames: names}
			return errNoop
		}
		if len(s.State.Players) >= MaxPlayers {
			return errf(KindValidation, "game is full (%d players max)", MaxPlayers)
		}
		name, err := validateName(playerName)
		if err != nil {
			return err
		}
		for _, p := range s.State.Players {
			if strings.EqualFold(p.Name, name) {
				return errf(KindValidation, "name %q is already taken", name)
			}
		}
		p := &Player{ID: uuid.NewString(), Name: name, JoinedAt: nowUTC()}
		s.State.Players = append(s.State.Players, p)
		res = JoinResult{PlayerID: p.ID}
		return nil
	})
	if errors.Is(err, errNoop) {
		return res, nil
	}
	if err != nil {
		return JoinResult{}, err
	}
	return res, nil
}

// Start deals the first round. Creator only, at least MinPlayers present,
// and the pool must cover a full first deal before anything is committed.
func (m *Manager) Start(ctx context.Context, code, actorID string) error {
	return m.update(ctx, code, func(s *Session) error {
		st := &s.State
		if actorID != st.CreatorID {
			return errf(KindUnauthorized, "only the game creator may start the game")
		}
		if st.Phase != PhaseWaiting {
			return errf(KindInvalidState, "game has already started")
		}
		if len(st.Players) < MinPlayers {
			return errf(KindValidation, "at least %d players are required", MinPlayers)
		}
		if st.Settings.RandoEnabled && len(st.Players)+1 > MaxPlayers {
			return errf(KindValidation, "no seat left for the bot player")
		}

		// All non-judge players get a hand; the first judge draws theirs
		// once the role moves on.
		required := (len(st.Players) - 1) * st.Settings.HandSize
		if len(s.Draw.Response) < required {
			return errf(KindInsufficientCards, "need %d response cards, pool has %d", required, len(s.Draw.Response))
		}
		if len(s.Draw.Prompt) < 1 {
			return errf(KindInsufficientCards, "no prompt cards available")
		}

		if st.Settings.RandoEnabled {
			st.Players = append(st.Players, &Player{
				ID:       uuid.NewString(),
				Name:     botName,
				IsBot:    true,
				JoinedAt: nowUTC(),
			})
		}

		humans := st.humans()
		judge := humans[rand.Intn(len(humans))]
		judge.IsJudge = true
		st.JudgeID = judge.ID
		if st.Settings.JudgeMode == JudgeModeOrdered {
			order := make([]string, 0, len(humans))
			for _, p := range humans {
				order = append(order, p.ID)
			}
			st.Rotation = Rotation{Order: order, Locked: true}
		}

		for _, p := range humans {
			if p.ID == judge.ID {
				continue
			}
			hand, err := drawCards(&s.Draw.Response, st.Settings.HandSize)
			if err != nil {
				return err // unreachable after the pre-flight check
			}
			p.Hand = hand
		}

		prompt, err := drawCards(&s.Draw.Prompt, 1)
		if err != nil {
			return err
		}
		st.Prompt = m.hydratePrompt(prompt[0])
		st.Phase = PhasePlaying
		st.Round = 1
		s.botSubmit()
		st.notify("The game has started", nowUTC())
		log.Info().Str("code", s.Code).Int("players", len(st.Players)).Msg("game started")
		return nil
	})
}

func (m *Manager) hydratePrompt(id string) *PromptCard {
	card := m.cards.Resolve(id)
	blanks := card.Blanks
	if blanks < 1 {
		blanks = 1
	}
	return &PromptCard{ID: id, Text: card.Text, Blanks: blanks}
}

// botSubmit plays the bot's answer for the current prompt straight from the
// draw pile. If the pile cannot cover it the bot sits the round out.
func (s *Session) botSubmit() {
	bot := s.State.bot()
	if bot == nil || s.State.Prompt == nil {
		return
	}
	if s.State.submission(bot.ID) != nil {
		return
	}
	drawn, err := drawCards(&s.Draw.Response, s.State.Prompt.Blanks)
	if err != nil {
		return
	}
	s.State.Submissions = append(s.State.Submissions, Submission{PlayerID: bot.ID, CardIDs: drawn})
}

// PoolPreview sizes a filter selection before a game is created.
type PoolPreview struct {
	Response   int  `json:"response"`
	Prompt     int  `json:"prompt"`
	Sufficient bool `json:"sufficient"`
	LowPool    bool `json:"low_pool"`
}

// PreviewCardPool reports whether the filtered pool can support a minimum
// game and whether it is small enough to warrant a warning.
func (m *Manager) PreviewCardPool(filters []string) PoolPreview {
	counts := m.cards.Counts(filters)
	return PoolPreview{
		Response:   counts.Response,
		Prompt:     counts.Prompt,
		Sufficient: counts.Response >= (MinPlayers-1)*DefaultHandSize && counts.Prompt >= 1,
		LowPool:    counts.Response < LowResponseThreshold || counts.Prompt < LowPromptThreshold,
	}
}

// End terminates a session early. Creator only. The current top scorer is
// recorded as winner when the game was underway.
func (m *Manager) End(ctx context.Context, code, actorID string) error {
	return m.update(ctx, code, func(s *Session) error {
		if actorID != s.State.CreatorID {
			return errf(KindUnauthorized, "only the game creator may end the game")
		}
		if s.State.Phase == PhaseFinished {
			return errf(KindInvalidState, "game is already finished")
		}
		winner := ""
		if s.State.Phase == PhasePlaying {
			if top := topScorer(&s.State); top != nil {
				winner = top.ID
			}
		}
		finish(&s.State, winner, EndedByHost)
		return nil
	})
}

// DeleteSession removes a session entirely. Creator only.
func (m *Manager) DeleteSession(ctx context.Context, code, actorID string) error {
	err := m.read(ctx, code, func(s *Session) error {
		if actorID != s.State.CreatorID {
			return errf(KindUnauthorized, "only the game creator may delete the game")
		}
		return nil
	})
	if err != nil {
		return err
	}
	code = normalizeCode(code)
	if err := m.store.Delete(ctx, code); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete session %s: %w", code, err)
	}
	m.mu.Lock()
	delete(m.sessions, code)
	m.mu.Unlock()
	return nil
}

// topScorer returns the highest-scoring player, bot included, ties broken by
// player order.
func topScorer(st *State) *Player {
	var top *Player
	for _, p := range st.Players {
		if top == nil || p.Score > top.Score {
			top = p
		}
	}
	return top
}

// finish closes the session; no transition mutates it afterwards.
func finish(st *State, winnerID, reason string) {
	now := nowUTC()
	st.Phase = PhaseFinished
	st.WinnerID = winnerID
	st.EndReason = reason
	st.FinishedAt = &now
	st.SkipVotes = nil
	st.EarlyReview = false
}

// errNoop aborts an update without surfacing an error to the caller; the
// snapshot rollback guarantees nothing was persisted.
var errNoop = errors.New("no-op transition")
