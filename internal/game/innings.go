package game

import "fmt"

const (
	resultChasingSideWon   = "chasingSideWon"
	resultDefendingSideWon = "defendingSideWon"
	resultTie              = "tie"
)

// resolveDelivery applies the hand-cricket rule: matching choices take a
// wicket, otherwise the batsman scores their choice.
func resolveDelivery(bat, bowl int) (runs int, wicket bool) {
	if bat == bowl {
		return 0, true
	}
	return bat, false
}

// classifyResult categorizes a completed chase. The chasing side wins the
// moment it reaches target; an exhausted innings is a tie on equal totals
// and a defending win otherwise.
func classifyResult(runs1, runs2, target int) string {
	switch {
	case runs2 >= target:
		return resultChasingSideWon
	case runs2 == runs1:
		return resultTie
	default:
		return resultDefendingSideWon
	}
}

func (m *Match) submitChoice(partyID, value int) (verdict, []Outbound) {
	if m.phase != phasePlaying {
		return verdictIgnored, nil
	}
	r, ok := m.roleOf(partyID)
	if !ok {
		return verdictRejected, []Outbound{errorTo(partyID, "out_of_turn", "You have no role in this innings.")}
	}
	if value < 0 || value > 6 {
		return verdictRejected, []Outbound{errorTo(partyID, "bad_input", "Choice must be 0-6.")}
	}

	// last value wins until the delivery resolves
	if r == roleBatting {
		m.pending.bat, m.pending.batSet = value, true
	} else {
		m.pending.bowl, m.pending.bowlSet = value, true
	}

	if !m.pending.batSet || !m.pending.bowlSet {
		return verdictAccepted, nil
	}
	return verdictAccepted, m.resolvePending()
}

func (m *Match) resolvePending() []Outbound {
	bat, bowl := m.pending.bat, m.pending.bowl
	m.pending.clear()

	runs, wicket := resolveDelivery(bat, bowl)

	var outs []Outbound
	if wicket {
		m.wickets++
		outs = append(outs, broadcast("result", ResultPayload{
			Outcome:       "out",
			BatsmanChoice: bat,
			BowlerChoice:  bowl,
		}))
	} else {
		if m.innings == 1 {
			m.runs1 += runs
		} else {
			m.runs2 += runs
		}
		outs = append(outs, broadcast("result", ResultPayload{
			Outcome:       "score",
			Runs:          &runs,
			BatsmanChoice: bat,
			BowlerChoice:  bowl,
		}))
	}
	m.ballsUsed++

	if m.innings == 1 {
		outs = append(outs, broadcast("update", m.updatePayload()))
		if m.wickets >= maxWickets || m.ballsUsed >= m.ballsLimit {
			outs = append(outs, m.startSecondInnings()...)
		}
		return outs
	}

	// innings 2: a successful chase ends the match immediately, even
	// mid-over; only then is exhaustion checked.
	outs = append(outs, broadcast("update", m.updatePayload()))
	if m.runs2 >= *m.target {
		return append(outs, m.finish()...)
	}
	if m.ballsUsed >= m.ballsLimit || m.wickets >= maxWickets {
		return append(outs, m.finish()...)
	}
	return outs
}

func (m *Match) startSecondInnings() []Outbound {
	m.wickets1 = m.wickets
	m.balls1 = m.ballsUsed

	t := m.runs1 + 1
	m.target = &t
	m.wickets = 0
	m.ballsUsed = 0
	m.battingID, m.bowlingID = m.bowlingID, m.battingID
	m.innings = 2
	m.pending.clear()

	return []Outbound{
		broadcast("inningsChange", InningsChangePayload{
			Message:    fmt.Sprintf("Innings 2 begins. Target: %d. Roles swapped.", t),
			Target:     t,
			BallsLimit: m.ballsLimit,
		}),
		unicast(m.battingID, "rolesAssigned", RolesAssignedPayload{YourRole: string(roleBatting), Message: "Roles swapped for Innings 2."}),
		unicast(m.bowlingID, "rolesAssigned", RolesAssignedPayload{YourRole: string(roleBowling), Message: "Roles swapped for Innings 2."}),
		broadcast("update", m.updatePayload()),
	}
}

func (m *Match) finish() []Outbound {
	m.result = classifyResult(m.runs1, m.runs2, *m.target)

	var msg string
	switch m.result {
	case resultChasingSideWon:
		msg = fmt.Sprintf("Chase successful! Won by %d wickets.", maxWickets-m.wickets)
	case resultTie:
		msg = fmt.Sprintf("Match tied! Both teams scored %d runs.", m.runs1)
	default:
		msg = fmt.Sprintf("Defending side wins by %d runs.", *m.target-m.runs2-1)
	}

	m.phase = phaseFinished

	return []Outbound{
		broadcast("matchOver", MatchOverPayload{
			Result: m.result,
			Final: FinalScore{
				Score1:     m.runs1,
				Score2:     m.runs2,
				Target:     *m.target,
				BallsUsed1: m.balls1,
				BallsUsed2: m.ballsUsed,
				Wickets1:   m.wickets1,
				Wickets2:   m.wickets,
			},
			PlayerNames: map[string]string{
				"player1": m.nameOf(m.partyIDs[0]),
				"player2": m.nameOf(m.partyIDs[1]),
			},
			Message: msg,
		}),
	}
}
