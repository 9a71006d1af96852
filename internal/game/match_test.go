package game

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatch(t *testing.T, seed int64, overs int) *Match {
	t.Helper()
	m := newMatch(rand.New(rand.NewSource(seed)))
	if overs != defaultOvers {
		v, _ := m.setOvers(1, SetOversPayload{Overs: overs})
		require.Equal(t, verdictAccepted, v)
	}
	m.begin(1, 2)
	require.Equal(t, phaseTossChoosing, m.phase)
	return m
}

// tossUp runs the toss so that battingID ends up batting, whichever party
// happens to win the seeded flip.
func tossUp(t *testing.T, m *Match, battingID int) {
	t.Helper()

	v, _ := m.chooseSide(1, sideHeads)
	require.Equal(t, verdictAccepted, v)
	v, outs := m.chooseSide(2, sideTails)
	require.Equal(t, verdictAccepted, v)
	require.Equal(t, phaseTossFlipping, m.phase)

	locked := 0
	for _, o := range outs {
		if o.Env.Type == "tossSidesLocked" {
			var p TossSidesLockedPayload
			require.NoError(t, json.Unmarshal(o.Env.Payload, &p))
			if p.YouAreFlipper {
				locked++
				require.Equal(t, m.toss.flipperID, o.To)
			}
		}
	}
	require.Equal(t, 1, locked, "exactly one party is the flipper")

	v, _ = m.flip(m.toss.flipperID)
	require.Equal(t, verdictAccepted, v)

	winner := m.toss.winnerID
	role := string(roleBatting)
	if winner != battingID {
		role = string(roleBowling)
	}
	v, _ = m.chooseRole(winner, role)
	require.Equal(t, verdictAccepted, v)
	require.Equal(t, phasePlaying, m.phase)
	require.Equal(t, battingID, m.battingID)
}

// deliverBall submits the bowler's value first, then the batsman's, and
// returns the outbound burst from the resolved delivery.
func deliverBall(t *testing.T, m *Match, bat, bowl int) []Outbound {
	t.Helper()
	v, outs := m.submitChoice(m.bowlingID, bowl)
	require.Equal(t, verdictAccepted, v)
	require.Empty(t, outs, "first choice of a ball must not resolve it")
	v, outs = m.submitChoice(m.battingID, bat)
	require.Equal(t, verdictAccepted, v)
	require.NotEmpty(t, outs)
	return outs
}

func findEnvelope(outs []Outbound, typ string) (Envelope, bool) {
	for _, o := range outs {
		if o.Env.Type == typ {
			return o.Env, true
		}
	}
	return Envelope{}, false
}

func TestSetOvers(t *testing.T) {
	m := newMatch(rand.New(rand.NewSource(1)))

	v, outs := m.setOvers(1, SetOversPayload{Overs: 0})
	assert.Equal(t, verdictRejected, v)
	_, found := findEnvelope(outs, "error")
	assert.True(t, found)

	v, _ = m.setOvers(1, SetOversPayload{Overs: 4})
	assert.Equal(t, verdictRejected, v)

	v, outs = m.setOvers(1, SetOversPayload{Overs: 2, PlayerName: "Alice"})
	require.Equal(t, verdictAccepted, v)
	assert.Equal(t, 12, m.ballsLimit)
	assert.Equal(t, "Alice", m.nameOf(1))
	_, found = findEnvelope(outs, "oversAccepted")
	assert.True(t, found)

	m.begin(1, 2)
	v, outs = m.setOvers(1, SetOversPayload{Overs: 1})
	assert.Equal(t, verdictRejected, v)
	env, found := findEnvelope(outs, "error")
	require.True(t, found)
	var e ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &e))
	assert.Equal(t, "out_of_phase", e.Code)
	assert.Equal(t, 12, m.ballsLimit, "overs unchanged after rejection")
}

func TestTossSideConflict(t *testing.T) {
	m := newTestMatch(t, 1, defaultOvers)

	v, _ := m.chooseSide(1, sideHeads)
	require.Equal(t, verdictAccepted, v)

	v, outs := m.chooseSide(2, sideHeads)
	assert.Equal(t, verdictRejected, v)
	env, found := findEnvelope(outs, "tossSideAck")
	require.True(t, found)
	var ack TossSideAckPayload
	require.NoError(t, json.Unmarshal(env.Payload, &ack))
	assert.False(t, ack.OK)
	assert.Equal(t, phaseTossChoosing, m.phase, "conflict does not lock the toss")

	v, _ = m.chooseSide(2, sideTails)
	require.Equal(t, verdictAccepted, v)
	assert.Equal(t, phaseTossFlipping, m.phase)
}

func TestTossSideSwitchReleases(t *testing.T) {
	m := newTestMatch(t, 1, defaultOvers)

	v, _ := m.chooseSide(1, sideHeads)
	require.Equal(t, verdictAccepted, v)
	v, _ = m.chooseSide(1, sideTails)
	require.Equal(t, verdictAccepted, v)

	// heads is free again
	v, _ = m.chooseSide(2, sideHeads)
	require.Equal(t, verdictAccepted, v)
	assert.Equal(t, phaseTossFlipping, m.phase)
	assert.Equal(t, 1, m.toss.owners[sideTails])
	assert.Equal(t, 2, m.toss.owners[sideHeads])
}

func TestTossInvalidSideRejected(t *testing.T) {
	m := newTestMatch(t, 1, defaultOvers)

	v, outs := m.chooseSide(1, "edge")
	assert.Equal(t, verdictRejected, v)
	env, found := findEnvelope(outs, "tossSideAck")
	require.True(t, found)
	var ack TossSideAckPayload
	require.NoError(t, json.Unmarshal(env.Payload, &ack))
	assert.False(t, ack.OK)
}

func TestFlipOnlyByFlipper(t *testing.T) {
	m := newTestMatch(t, 1, defaultOvers)
	v, _ := m.chooseSide(1, sideHeads)
	require.Equal(t, verdictAccepted, v)
	v, _ = m.chooseSide(2, sideTails)
	require.Equal(t, verdictAccepted, v)

	other := 1
	if m.toss.flipperID == 1 {
		other = 2
	}
	v, outs := m.flip(other)
	assert.Equal(t, verdictIgnored, v)
	assert.Nil(t, outs)
	assert.Equal(t, phaseTossFlipping, m.phase)

	v, outs = m.flip(m.toss.flipperID)
	require.Equal(t, verdictAccepted, v)
	env, found := findEnvelope(outs, "tossResult")
	require.True(t, found)
	var res TossResultPayload
	require.NoError(t, json.Unmarshal(env.Payload, &res))
	assert.Equal(t, m.toss.winnerID, res.WinnerID)
	assert.Equal(t, m.toss.owners[res.Outcome], res.WinnerID)
}

func TestChooseRoleOnlyByWinner(t *testing.T) {
	m := newTestMatch(t, 1, defaultOvers)
	v, _ := m.chooseSide(1, sideHeads)
	require.Equal(t, verdictAccepted, v)
	v, _ = m.chooseSide(2, sideTails)
	require.Equal(t, verdictAccepted, v)

	// role choice before the flip is dropped
	v, _ = m.chooseRole(1, string(roleBatting))
	assert.Equal(t, verdictIgnored, v)

	v, _ = m.flip(m.toss.flipperID)
	require.Equal(t, verdictAccepted, v)
	winner := m.toss.winnerID
	loser := 3 - winner

	v, outs := m.chooseRole(loser, string(roleBatting))
	assert.Equal(t, verdictIgnored, v)
	assert.Nil(t, outs)

	v, _ = m.chooseRole(winner, "umpiring")
	assert.Equal(t, verdictIgnored, v)

	v, _ = m.chooseRole(winner, string(roleBowling))
	require.Equal(t, verdictAccepted, v)
	assert.Equal(t, winner, m.bowlingID)
	assert.Equal(t, loser, m.battingID)
	assert.Equal(t, 1, m.innings)
	assert.Nil(t, m.toss)
}

func TestFirstInningsClosesOnBalls(t *testing.T) {
	m := newTestMatch(t, 1, defaultOvers)
	tossUp(t, m, 1)

	deliverBall(t, m, 2, 5)
	deliverBall(t, m, 4, 1)
	deliverBall(t, m, 6, 6) // wicket
	deliverBall(t, m, 1, 1) // wicket
	deliverBall(t, m, 3, 0)
	outs := deliverBall(t, m, 0, 3)

	env, found := findEnvelope(outs, "inningsChange")
	require.True(t, found)
	var ic InningsChangePayload
	require.NoError(t, json.Unmarshal(env.Payload, &ic))
	assert.Equal(t, 10, ic.Target)

	assert.Equal(t, 2, m.innings)
	assert.Equal(t, 9, m.runs1)
	require.NotNil(t, m.target)
	assert.Equal(t, 10, *m.target)
	assert.Equal(t, 2, m.wickets1)
	assert.Equal(t, 6, m.balls1)

	// roles swapped, per-innings counters reset
	assert.Equal(t, 2, m.battingID)
	assert.Equal(t, 1, m.bowlingID)
	assert.Equal(t, 0, m.wickets)
	assert.Equal(t, 0, m.ballsUsed)
}

func TestFirstInningsClosesOnWickets(t *testing.T) {
	m := newTestMatch(t, 1, defaultOvers)
	tossUp(t, m, 1)

	deliverBall(t, m, 4, 2)
	deliverBall(t, m, 3, 3) // wicket
	deliverBall(t, m, 5, 5) // wicket
	outs := deliverBall(t, m, 2, 2) // wicket, innings over

	_, found := findEnvelope(outs, "inningsChange")
	require.True(t, found)
	assert.Equal(t, 2, m.innings)
	assert.Equal(t, 4, m.runs1)
	assert.Equal(t, 3, m.wickets1)
	assert.Equal(t, 4, m.balls1)
}

func TestChaseWinEndsMidOver(t *testing.T) {
	m := newTestMatch(t, 1, defaultOvers)
	tossUp(t, m, 1)

	deliverBall(t, m, 2, 5)
	deliverBall(t, m, 4, 1)
	deliverBall(t, m, 6, 6)
	deliverBall(t, m, 1, 1)
	deliverBall(t, m, 3, 0)
	deliverBall(t, m, 0, 3) // innings change, target 10

	deliverBall(t, m, 4, 2)
	outs := deliverBall(t, m, 6, 1) // 10 >= 10, four balls to spare

	assert.Equal(t, phaseFinished, m.phase)
	assert.Equal(t, resultChasingSideWon, m.result)

	env, found := findEnvelope(outs, "matchOver")
	require.True(t, found)
	var over MatchOverPayload
	require.NoError(t, json.Unmarshal(env.Payload, &over))
	assert.Equal(t, resultChasingSideWon, over.Result)
	assert.Equal(t, "Chase successful! Won by 3 wickets.", over.Message)
	assert.Equal(t, 9, over.Final.Score1)
	assert.Equal(t, 10, over.Final.Score2)
	assert.Equal(t, 10, over.Final.Target)
	assert.Equal(t, 6, over.Final.BallsUsed1)
	assert.Equal(t, 2, over.Final.BallsUsed2)
	assert.Equal(t, 2, over.Final.Wickets1)
	assert.Equal(t, 0, over.Final.Wickets2)

	winner, loser, tie := m.resultParties()
	assert.False(t, tie)
	assert.Equal(t, 2, winner)
	assert.Equal(t, 1, loser)
}

func TestDefendedWin(t *testing.T) {
	m := newTestMatch(t, 1, defaultOvers)
	tossUp(t, m, 1)

	deliverBall(t, m, 2, 5)
	deliverBall(t, m, 4, 1)
	deliverBall(t, m, 6, 6)
	deliverBall(t, m, 1, 1)
	deliverBall(t, m, 3, 0)
	deliverBall(t, m, 0, 3) // target 10

	for i := 0; i < 5; i++ {
		deliverBall(t, m, 0, 1)
	}
	outs := deliverBall(t, m, 0, 1) // balls exhausted at 0/10

	assert.Equal(t, phaseFinished, m.phase)
	assert.Equal(t, resultDefendingSideWon, m.result)

	env, found := findEnvelope(outs, "matchOver")
	require.True(t, found)
	var over MatchOverPayload
	require.NoError(t, json.Unmarshal(env.Payload, &over))
	assert.Equal(t, "Defending side wins by 9 runs.", over.Message)

	winner, loser, tie := m.resultParties()
	assert.False(t, tie)
	assert.Equal(t, 1, winner)
	assert.Equal(t, 2, loser)
}

func TestTiedMatch(t *testing.T) {
	m := newTestMatch(t, 1, defaultOvers)
	tossUp(t, m, 1)

	deliverBall(t, m, 1, 0)
	deliverBall(t, m, 5, 5) // wicket
	deliverBall(t, m, 5, 5) // wicket
	deliverBall(t, m, 5, 5) // wicket, innings over at 1 run
	require.Equal(t, 2, m.innings)
	require.Equal(t, 2, *m.target)

	deliverBall(t, m, 1, 0)
	deliverBall(t, m, 4, 4) // wicket
	deliverBall(t, m, 4, 4) // wicket
	outs := deliverBall(t, m, 4, 4) // all out at 1/2

	assert.Equal(t, phaseFinished, m.phase)
	assert.Equal(t, resultTie, m.result)

	env, found := findEnvelope(outs, "matchOver")
	require.True(t, found)
	var over MatchOverPayload
	require.NoError(t, json.Unmarshal(env.Payload, &over))
	assert.Equal(t, "Match tied! Both teams scored 1 runs.", over.Message)

	_, _, tie := m.resultParties()
	assert.True(t, tie)
}

func TestChoiceLastValueWins(t *testing.T) {
	m := newTestMatch(t, 1, defaultOvers)
	tossUp(t, m, 1)

	v, outs := m.submitChoice(m.battingID, 3)
	require.Equal(t, verdictAccepted, v)
	require.Empty(t, outs)
	v, outs = m.submitChoice(m.battingID, 5)
	require.Equal(t, verdictAccepted, v)
	require.Empty(t, outs, "replacing a buffered choice must not resolve")

	v, outs = m.submitChoice(m.bowlingID, 3)
	require.Equal(t, verdictAccepted, v)
	require.NotEmpty(t, outs)

	// 5 vs 3: the replaced value scored, the original would have been out
	assert.Equal(t, 5, m.runs1)
	assert.Equal(t, 0, m.wickets)
}

func TestPendingClearedBetweenBalls(t *testing.T) {
	m := newTestMatch(t, 1, defaultOvers)
	tossUp(t, m, 1)

	deliverBall(t, m, 2, 5)

	v, outs := m.submitChoice(m.battingID, 4)
	require.Equal(t, verdictAccepted, v)
	assert.Empty(t, outs, "stale bowler value must not carry into the next ball")
}

func TestChoiceValidation(t *testing.T) {
	m := newTestMatch(t, 1, defaultOvers)

	// before roles exist every choice is dropped silently
	v, outs := m.submitChoice(1, 3)
	assert.Equal(t, verdictIgnored, v)
	assert.Nil(t, outs)

	tossUp(t, m, 1)

	for _, bad := range []int{-1, 7, 42} {
		v, outs := m.submitChoice(m.battingID, bad)
		assert.Equal(t, verdictRejected, v)
		env, found := findEnvelope(outs, "error")
		require.True(t, found)
		var e ErrorPayload
		require.NoError(t, json.Unmarshal(env.Payload, &e))
		assert.Equal(t, "bad_input", e.Code)
	}
	assert.False(t, m.pending.batSet, "rejected value must not be buffered")
}
