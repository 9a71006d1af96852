package game

import (
	"fmt"
	"math/rand"
	"strings"
)

type phase string

const (
	phaseWaiting      phase = "waiting"
	phaseTossChoosing phase = "tossChoosing"
	phaseTossFlipping phase = "tossFlipping"
	phasePlaying      phase = "playing"
	phaseFinished     phase = "finished"
)

type role string

const (
	roleBatting role = "batting"
	roleBowling role = "bowling"
)

const (
	maxWickets   = 3
	ballsPerOver = 6
	defaultOvers = 1
)

// verdict tags how a handler disposed of an inbound message: an answered
// acceptance, an answered rejection, or a silent drop.
type verdict int

const (
	verdictAccepted verdict = iota
	verdictRejected
	verdictIgnored
)

// Match is the authoritative state for one two-party contest. A Match is
// only ever touched from its owning room's goroutine.
type Match struct {
	phase phase

	overs      int
	ballsLimit int

	partyIDs [2]int // admission order, set by begin

	innings   int // 0 none, 1 first innings, 2 second innings
	battingID int // party id, 0 until roles assigned
	bowlingID int

	runs1     int
	runs2     int
	wickets   int // wickets fallen in the current innings
	ballsUsed int // balls bowled in the current innings
	target    *int

	// first-innings totals, frozen when the innings closes
	wickets1 int
	balls1   int

	result string // chasingSideWon|defendingSideWon|tie, set once finished

	toss    *tossState
	pending pendingChoices

	names map[int]string // party id -> display name
	rng   *rand.Rand
}

// pendingChoices buffers at most one value per role for the current ball.
type pendingChoices struct {
	bat     int
	batSet  bool
	bowl    int
	bowlSet bool
}

func (p *pendingChoices) clear() {
	*p = pendingChoices{}
}

func newMatch(rng *rand.Rand) *Match {
	return &Match{
		phase:      phaseWaiting,
		overs:      defaultOvers,
		ballsLimit: defaultOvers * ballsPerOver,
		names:      make(map[int]string),
		rng:        rng,
	}
}

// begin moves a waiting match into the toss once both parties are in.
func (m *Match) begin(first, second int) []Outbound {
	if m.phase != phaseWaiting {
		return nil
	}
	m.partyIDs = [2]int{first, second}
	m.phase = phaseTossChoosing
	m.toss = newTossState()
	return []Outbound{broadcast("tossStart", nil)}
}

func (m *Match) setOvers(partyID int, p SetOversPayload) (verdict, []Outbound) {
	if p.Overs < 1 || p.Overs > 3 {
		return verdictRejected, []Outbound{errorTo(partyID, "bad_input", "Invalid overs. Allowed: 1, 2, 3.")}
	}
	if m.phase != phaseWaiting {
		return verdictRejected, []Outbound{errorTo(partyID, "out_of_phase", "Cannot change overs after match started.")}
	}

	m.overs = p.Overs
	m.ballsLimit = p.Overs * ballsPerOver
	m.setName(partyID, p.PlayerName)

	return verdictAccepted, []Outbound{
		unicast(partyID, "oversAccepted", OversAcceptedPayload{Overs: m.overs}),
		broadcast("status", StatusPayload{
			Message: fmt.Sprintf("Match will be %d over(s) per innings (%d balls).", m.overs, m.ballsLimit),
		}),
	}
}

func (m *Match) setName(partyID int, name string) {
	if n := strings.TrimSpace(name); n != "" {
		m.names[partyID] = n
	}
}

func (m *Match) nameOf(partyID int) string {
	if n := m.names[partyID]; n != "" {
		return n
	}
	return fmt.Sprintf("Player %d", partyID)
}

func (m *Match) roleOf(partyID int) (role, bool) {
	switch partyID {
	case m.battingID:
		return roleBatting, true
	case m.bowlingID:
		return roleBowling, true
	}
	return "", false
}

func (m *Match) updatePayload() UpdatePayload {
	score := m.runs1
	if m.innings == 2 {
		score = m.runs2
	}
	return UpdatePayload{
		Innings:    m.innings,
		Score:      score,
		Wickets:    m.wickets,
		Target:     m.target,
		BallsUsed:  m.ballsUsed,
		BallsLimit: m.ballsLimit,
	}
}

// resultParties reports the winning and losing party of a finished match.
func (m *Match) resultParties() (winnerID, loserID int, tie bool) {
	switch m.result {
	case resultChasingSideWon:
		return m.battingID, m.bowlingID, false
	case resultDefendingSideWon:
		return m.bowlingID, m.battingID, false
	default:
		return 0, 0, true
	}
}
