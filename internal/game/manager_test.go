package game

import (
	"context"
	"strings"
	"testing"

	"github.com/benjamw/cardparty/internal/store"
)

func TestCreateSession(t *testing.T) {
	m := newTestManager(60, 20)

	code, creatorID, err := m.CreateSession(context.Background(), "Alice", nil, testSettings())
	if err != nil {
		t.Fatalf("should be able to create session: %v", err)
	}
	if len(code) != codeLength {
		t.Fatalf("expected %d-char code, got %q", codeLength, code)
	}
	if creatorID == "" {
		t.Fatal("creator ID should not be empty")
	}

	s, err := m.session(context.Background(), code)
	if err != nil {
		t.Fatalf("should be able to retrieve created session: %v", err)
	}
	if s.State.Phase != PhaseWaiting {
		t.Fatalf("expected phase %s, got %s", PhaseWaiting, s.State.Phase)
	}
	if len(s.State.Players) != 1 {
		t.Fatalf("expected 1 player, got %d", len(s.State.Players))
	}
	if !s.State.Players[0].IsCreator {
		t.Fatal("creator flag should be set")
	}
	if len(s.Draw.Response) != 60 || len(s.Draw.Prompt) != 20 {
		t.Fatalf("draw piles not seeded: %d/%d", len(s.Draw.Response), len(s.Draw.Prompt))
	}
}

func TestCreateSessionValidation(t *testing.T) {
	m := newTestManager(60, 20)

	if _, _, err := m.CreateSession(context.Background(), "", nil, testSettings()); !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for empty name, got %v", err)
	}
	bad := testSettings()
	bad.HandSize = 99
	if _, _, err := m.CreateSession(context.Background(), "Alice", nil, bad); !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for hand size, got %v", err)
	}
	empty := NewManager(store.NewMemory(), testCatalog(0, 5))
	if _, _, err := empty.CreateSession(context.Background(), "Alice", nil, testSettings()); !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for empty pool, got %v", err)
	}
}

func TestJoin(t *testing.T) {
	m := newTestManager(60, 20)
	g := newTestGame(t, m, testSettings(), "Alice")

	res, err := m.Join(context.Background(), g.code, "Bob")
	if err != nil {
		t.Fatalf("should be able to join: %v", err)
	}
	if res.PlayerID == "" || res.AlreadyStarted {
		t.Fatalf("unexpected join result: %+v", res)
	}

	// Codes are case-insensitive.
	if _, err := m.Join(context.Background(), strings.ToLower(g.code), "Carol"); err != nil {
		t.Fatalf("lower-case code should work: %v", err)
	}

	if _, err := m.Join(context.Background(), g.code, "Bob"); !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for duplicate name, got %v", err)
	}
	if _, err := m.Join(context.Background(), "ZZZZZ", "Dave"); !IsKind(err, KindNotFound) {
		t.Fatalf("expected not found for unknown code, got %v", err)
	}
}

func TestJoinAfterStartSignalsRedirect(t *testing.T) {
	m := newTestManager(60, 20)
	g := startedGame(t, m, testSettings(), "Alice", "Bob", "Carol")

	res, err := m.Join(context.Background(), g.code, "Dave")
	if err != nil {
		t.Fatalf("late join must not be an error: %v", err)
	}
	if !res.AlreadyStarted {
		t.Fatal("expected alreadyStarted signal")
	}
	if len(res.PlayerNames) != 3 {
		t.Fatalf("expected 3 player names, got %v", res.PlayerNames)
	}
	// And the session gained no player.
	if got := len(g.state().Players); got != 3 {
		t.Fatalf("expected 3 players, got %d", got)
	}
}

func TestJoinFull(t *testing.T) {
	m := newTestManager(900, 30)
	g := newTestGame(t, m, testSettings(), "P0")
	for i := 1; i < MaxPlayers; i++ {
		if _, err := m.Join(context.Background(), g.code, playerName(i)); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}
	if _, err := m.Join(context.Background(), g.code, "Overflow"); !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error when full, got %v", err)
	}
}

func TestStartAuthorizationAndBounds(t *testing.T) {
	m := newTestManager(60, 20)
	g := newTestGame(t, m, testSettings(), "Alice", "Bob")

	if err := m.Start(context.Background(), g.code, g.ids["Bob"]); !IsKind(err, KindUnauthorized) {
		t.Fatalf("expected unauthorized for non-creator, got %v", err)
	}
	if err := m.Start(context.Background(), g.code, g.ids["Alice"]); !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error below %d players, got %v", MinPlayers, err)
	}
}

func TestStartInsufficientCards(t *testing.T) {
	// 3 players, hand size 4: needs 8 response cards for the two
	// non-judges; give it 7.
	m := newTestManager(7, 20)
	g := newTestGame(t, m, testSettings(), "Alice", "Bob", "Carol")

	err := m.Start(context.Background(), g.code, g.ids["Alice"])
	if !IsKind(err, KindInsufficientCards) {
		t.Fatalf("expected insufficient cards, got %v", err)
	}
	if g.state().Phase != PhaseWaiting {
		t.Fatal("failed start must not change the phase")
	}
}

func TestStartDealsAndSelectsJudge(t *testing.T) {
	m := newTestManager(60, 20)
	g := startedGame(t, m, testSettings(), "Alice", "Bob", "Carol")

	st := g.state()
	if st.Phase != PhasePlaying || st.Round != 1 {
		t.Fatalf("expected playing round 1, got %s round %d", st.Phase, st.Round)
	}
	if st.JudgeID == "" || st.player(st.JudgeID) == nil {
		t.Fatal("a judge must be selected")
	}
	if st.Prompt == nil || st.Prompt.Blanks < 1 {
		t.Fatalf("expected a hydrated prompt, got %+v", st.Prompt)
	}
	for _, p := range st.Players {
		if p.ID == st.JudgeID {
			if len(p.Hand) != 0 {
				t.Fatalf("first judge draws no hand, got %d cards", len(p.Hand))
			}
			continue
		}
		if len(p.Hand) != st.Settings.HandSize {
			t.Fatalf("player %s hand = %d, want %d", p.Name, len(p.Hand), st.Settings.HandSize)
		}
	}
}

func TestPreviewCardPool(t *testing.T) {
	m := newTestManager(40, 10)
	p := m.PreviewCardPool(nil)
	if p.Response != 40 || p.Prompt != 10 {
		t.Fatalf("unexpected counts: %+v", p)
	}
	if !p.Sufficient {
		t.Fatal("40 responses should be sufficient for a minimum game")
	}
	if !p.LowPool {
		t.Fatal("pool below warning thresholds should be flagged low")
	}
}

func TestEndByHost(t *testing.T) {
	m := newTestManager(60, 20)
	g := startedGame(t, m, testSettings(), "Alice", "Bob", "Carol")

	if err := m.End(context.Background(), g.code, g.ids["Bob"]); !IsKind(err, KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := m.End(context.Background(), g.code, g.creatorID()); err != nil {
		t.Fatalf("end: %v", err)
	}
	st := g.state()
	if st.Phase != PhaseFinished || st.EndReason != EndedByHost {
		t.Fatalf("expected finished/%s, got %s/%s", EndedByHost, st.Phase, st.EndReason)
	}
	if err := m.End(context.Background(), g.code, g.creatorID()); !IsKind(err, KindInvalidState) {
		t.Fatalf("double end should fail, got %v", err)
	}
}

func TestRehydrateFromStore(t *testing.T) {
	m := newTestManager(60, 20)
	g := startedGame(t, m, testSettings(), "Alice", "Bob", "Carol")

	// Simulate a restart: fresh manager on the same store and catalog.
	m2 := NewManager(m.store, m.cards)
	view, err := m2.View(context.Background(), g.code, g.ids["Alice"])
	if err != nil {
		t.Fatalf("rehydrated view: %v", err)
	}
	if view.Phase != PhasePlaying || view.Round != 1 {
		t.Fatalf("rehydrated state wrong: %s round %d", view.Phase, view.Round)
	}
}

func playerName(i int) string {
	return string(rune('A'+i%26)) + "Player" + string(rune('0'+i%10))
}
