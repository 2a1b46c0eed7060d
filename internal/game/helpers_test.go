package game

import (
	"context"
	"fmt"
	"testing"

	"github.com/benjamw/cardparty/internal/cards"
	"github.com/benjamw/cardparty/internal/store"
)

func testCatalog(responses, prompts int) *cards.Catalog {
	cat := cards.NewCatalog()
	for i := 0; i < responses; i++ {
		cat.Add(cards.KindResponse, fmt.Sprintf("response %d", i), 0, "base")
	}
	for i := 0; i < prompts; i++ {
		cat.Add(cards.KindPrompt, fmt.Sprintf("prompt %d ____", i), 1, "base")
	}
	return cat
}

func newTestManager(responses, prompts int) *Manager {
	return NewManager(store.NewMemory(), testCatalog(responses, prompts))
}

func testSettings() Settings {
	return Settings{MaxScore: 5, HandSize: 4}
}

// testGame wires a created (and optionally started) session with named
// players for direct engine tests.
type testGame struct {
	t    *testing.T
	m    *Manager
	code string
	ids  map[string]string // name -> player ID
}

func newTestGame(t *testing.T, m *Manager, settings Settings, names ...string) *testGame {
	t.Helper()
	ctx := context.Background()
	code, creatorID, err := m.CreateSession(ctx, names[0], nil, settings)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	g := &testGame{t: t, m: m, code: code, ids: map[string]string{names[0]: creatorID}}
	for _, name := range names[1:] {
		res, err := m.Join(ctx, code, name)
		if err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
		g.ids[name] = res.PlayerID
	}
	return g
}

func startedGame(t *testing.T, m *Manager, settings Settings, names ...string) *testGame {
	t.Helper()
	g := newTestGame(t, m, settings, names...)
	if err := m.Start(context.Background(), g.code, g.ids[names[0]]); err != nil {
		t.Fatalf("start game: %v", err)
	}
	return g
}

func (g *testGame) session() *Session {
	g.t.Helper()
	s, err := g.m.session(context.Background(), g.code)
	if err != nil {
		g.t.Fatalf("session %s: %v", g.code, err)
	}
	return s
}

func (g *testGame) state() *State { return &g.session().State }

func (g *testGame) judgeID() string { return g.state().JudgeID }

func (g *testGame) creatorID() string { return g.state().CreatorID }

// nonJudges returns the IDs of unpaused human players other than the judge.
func (g *testGame) nonJudges() []string {
	var out []string
	for _, p := range g.state().Players {
		if !p.IsBot && !p.Paused && p.ID != g.state().JudgeID {
			out = append(out, p.ID)
		}
	}
	return out
}

func (g *testGame) hand(playerID string) []string {
	p := g.state().player(playerID)
	if p == nil {
		g.t.Fatalf("player %s not in game", playerID)
	}
	return append([]string(nil), p.Hand...)
}

// submitAll plays the first card of every eligible hand, skipping players
// who already answered this round.
func (g *testGame) submitAll() {
	g.t.Helper()
	for _, id := range g.nonJudges() {
		if g.state().submission(id) != nil {
			continue
		}
		hand := g.hand(id)
		if err := g.m.Submit(context.Background(), g.code, id, hand[:g.state().Prompt.Blanks]); err != nil {
			g.t.Fatalf("submit for %s: %v", id, err)
		}
	}
}

// playRound submits for everyone, picks the given winner (or the first
// submitter) and advances.
func (g *testGame) playRound(winnerID string) {
	g.t.Helper()
	ctx := context.Background()
	g.submitAll()
	if winnerID == "" {
		winnerID = g.state().Submissions[0].PlayerID
	}
	if err := g.m.PickWinner(ctx, g.code, g.judgeID(), winnerID); err != nil {
		g.t.Fatalf("pick winner: %v", err)
	}
	if err := g.m.AdvanceRound(ctx, g.code, g.judgeID()); err != nil {
		g.t.Fatalf("advance round: %v", err)
	}
}
