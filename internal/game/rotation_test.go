package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nominate walks the judge role through the given sequence: each step the
// sitting judge nominates the next player, a winner is picked and the round
// advances so the nominee actually takes the role.
func nominate(t *testing.T, g *testGame, nextID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, g.m.SetNextCzar(ctx, g.code, g.judgeID(), nextID))
	g.playRound("")
}

func TestRotationLocksWhenCycleCloses(t *testing.T) {
	m := newTestManager(200, 30)
	g := startedGame(t, m, testSettings(), "Alice", "Bob", "Carol")

	first := g.judgeID()
	others := g.nonJudges()
	second, third := others[0], others[1]

	nominate(t, g, second)
	assert.Equal(t, second, g.judgeID(), "nominated player takes the role on advance")
	assert.False(t, g.state().Rotation.Locked)

	nominate(t, g, third)
	require.Equal(t, third, g.judgeID())

	// Closing the cycle back to the first judge locks the order.
	require.NoError(t, m.SetNextCzar(context.Background(), g.code, third, first))
	rot := g.state().Rotation
	assert.True(t, rot.Locked)
	assert.Equal(t, []string{first, second, third}, rot.Order)
	assert.Empty(t, rot.Skipped)
}

func TestRotationDetectsSkippedPlayer(t *testing.T) {
	m := newTestManager(200, 30)
	g := startedGame(t, m, testSettings(), "Alice", "Bob", "Carol", "Dave")

	first := g.judgeID()
	others := g.nonJudges()
	second, third, fourth := others[0], others[1], others[2]

	nominate(t, g, second)
	nominate(t, g, third)

	// Cycle closes without the fourth player: stay unlocked, record them.
	require.NoError(t, m.SetNextCzar(context.Background(), g.code, third, first))
	rot := g.state().Rotation
	assert.False(t, rot.Locked, "locking is deferred until the gap is resolved")
	require.Len(t, rot.Skipped, 1)
	assert.Equal(t, fourth, rot.Skipped[0].ID)
	assert.Equal(t, []string{first, second, third}, rot.Order)
}

func TestPlaceSkippedPlayerRepairsAndLocks(t *testing.T) {
	m := newTestManager(200, 30)
	g := startedGame(t, m, testSettings(), "Alice", "Bob", "Carol", "Dave")

	first := g.judgeID()
	others := g.nonJudges()
	second, third, fourth := others[0], others[1], others[2]

	nominate(t, g, second)
	nominate(t, g, third)
	require.NoError(t, m.SetNextCzar(context.Background(), g.code, third, first))
	require.Len(t, g.state().Rotation.Skipped, 1)

	ctx := context.Background()

	// Only the creator may repair.
	notCreator := second
	if notCreator == g.creatorID() {
		notCreator = third
	}
	err := m.PlaceSkippedPlayer(ctx, g.code, notCreator, fourth, third)
	assert.True(t, IsKind(err, KindUnauthorized), "got %v", err)

	require.NoError(t, m.PlaceSkippedPlayer(ctx, g.code, g.creatorID(), fourth, third))
	rot := g.state().Rotation
	assert.True(t, rot.Locked)
	assert.Empty(t, rot.Skipped)
	assert.Equal(t, []string{first, second, fourth, third}, rot.Order, "insertion goes immediately before the anchor")
}

func TestPlaceSkippedPlayerValidation(t *testing.T) {
	m := newTestManager(200, 30)
	g := startedGame(t, m, testSettings(), "Alice", "Bob", "Carol", "Dave")

	ctx := context.Background()
	err := m.PlaceSkippedPlayer(ctx, g.code, g.creatorID(), g.nonJudges()[0], g.judgeID())
	assert.True(t, IsKind(err, KindInvalidState), "no skipped players yet: got %v", err)

	first := g.judgeID()
	others := g.nonJudges()
	nominate(t, g, others[0])
	nominate(t, g, others[1])
	require.NoError(t, m.SetNextCzar(ctx, g.code, others[1], first))

	err = m.PlaceSkippedPlayer(ctx, g.code, g.creatorID(), others[0], first)
	assert.True(t, IsKind(err, KindValidation), "placed player is not skipped: got %v", err)

	err = m.PlaceSkippedPlayer(ctx, g.code, g.creatorID(), others[2], "nope")
	assert.True(t, IsKind(err, KindValidation), "anchor must be in the order: got %v", err)
}

func TestLockedOrderSkipsDepartedPlayers(t *testing.T) {
	m := newTestManager(400, 40)
	g := startedGame(t, m, testSettings(), "Alice", "Bob", "Carol", "Dave")

	first := g.judgeID()
	others := g.nonJudges()
	second, third, fourth := others[0], others[1], others[2]

	nominate(t, g, second)
	nominate(t, g, third)
	nominate(t, g, fourth)
	require.NoError(t, m.SetNextCzar(context.Background(), g.code, fourth, first))
	require.True(t, g.state().Rotation.Locked)

	// Remove the player due next; the cyclic walk must skip them.
	require.NoError(t, m.RemovePlayer(context.Background(), g.code, g.creatorID(), first))
	st := g.state()
	assert.True(t, st.Rotation.Locked, "removal must not unlock the order")
	assert.NotContains(t, st.Rotation.Order, first)

	g.playRound("")
	assert.Equal(t, second, g.judgeID(), "rotation skips departed players")
}

func TestRemovedJudgeHandsRoleToCyclicSuccessor(t *testing.T) {
	m := newTestManager(400, 40)
	g := startedGame(t, m, testSettings(), "Alice", "Bob", "Carol", "Dave")

	first := g.judgeID()
	others := g.nonJudges()
	second, third, fourth := others[0], others[1], others[2]

	nominate(t, g, second)
	nominate(t, g, third)
	nominate(t, g, fourth)
	require.NoError(t, m.SetNextCzar(context.Background(), g.code, fourth, first))
	require.True(t, g.state().Rotation.Locked)

	// Advance so the cycle's first judge holds the role again, then remove
	// them mid-round. The role must pass to their cyclic successor, not to
	// an arbitrary position in the order.
	g.playRound("")
	require.Equal(t, first, g.judgeID())

	require.NoError(t, m.RemovePlayer(context.Background(), g.code, g.creatorID(), first))
	st := g.state()
	assert.Equal(t, second, st.JudgeID, "role follows the locked order")
	assert.True(t, st.Rotation.Locked)
	assert.Equal(t, []string{second, third, fourth}, st.Rotation.Order)
}

func TestLockedNominationMustMatchOrder(t *testing.T) {
	m := newTestManager(200, 30)
	g := startedGame(t, m, testSettings(), "Alice", "Bob", "Carol")

	first := g.judgeID()
	others := g.nonJudges()
	second, third := others[0], others[1]

	nominate(t, g, second)
	nominate(t, g, third)
	require.NoError(t, m.SetNextCzar(context.Background(), g.code, third, first))
	require.True(t, g.state().Rotation.Locked)

	// third is still the judge; the order dictates first is next.
	err := m.SetNextCzar(context.Background(), g.code, third, second)
	assert.True(t, IsKind(err, KindValidation), "got %v", err)
	require.NoError(t, m.SetNextCzar(context.Background(), g.code, third, first))
}

func TestSetNextCzarAuthorization(t *testing.T) {
	m := newTestManager(200, 30)
	g := startedGame(t, m, testSettings(), "Alice", "Bob", "Carol")

	others := g.nonJudges()
	err := m.SetNextCzar(context.Background(), g.code, others[0], others[1])
	assert.True(t, IsKind(err, KindUnauthorized), "only the judge nominates: got %v", err)

	err = m.SetNextCzar(context.Background(), g.code, g.judgeID(), g.judgeID())
	assert.True(t, IsKind(err, KindValidation), "self-nomination: got %v", err)

	err = m.SetNextCzar(context.Background(), g.code, g.judgeID(), "ghost")
	assert.True(t, IsKind(err, KindNotFound), "unknown nominee: got %v", err)
}

func TestOrderedModeRotatesByJoinOrder(t *testing.T) {
	m := newTestManager(200, 30)
	settings := testSettings()
	settings.JudgeMode = JudgeModeOrdered
	g := startedGame(t, m, settings, "Alice", "Bob", "Carol")

	st := g.state()
	require.True(t, st.Rotation.Locked, "ordered mode locks at start")
	require.Len(t, st.Rotation.Order, 3)

	expected := nextCzarID(st)
	g.playRound("")
	assert.Equal(t, expected, g.judgeID())
}
