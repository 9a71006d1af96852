package game

const (
	sideHeads = "heads"
	sideTails = "tails"
)

// tossState lives only between tossChoosing and the winner's role choice.
type tossState struct {
	picks     map[int]string // party id -> side
	owners    map[string]int // side -> party id
	flipperID int
	outcome   string
	winnerID  int
}

func newTossState() *tossState {
	return &tossState{
		picks:  make(map[int]string),
		owners: make(map[string]int),
	}
}

// opponentOf returns the other side-owning party, or 0.
func (t *tossState) opponentOf(partyID int) int {
	for _, id := range t.owners {
		if id != partyID {
			return id
		}
	}
	return 0
}

func (m *Match) chooseSide(partyID int, side string) (verdict, []Outbound) {
	if m.phase != phaseTossChoosing || m.toss == nil {
		return verdictIgnored, nil
	}
	if side != sideHeads && side != sideTails {
		return verdictRejected, []Outbound{
			unicast(partyID, "tossSideAck", TossSideAckPayload{OK: false, Message: "Invalid side."}),
		}
	}

	t := m.toss
	if owner, taken := t.owners[side]; taken && owner != partyID {
		return verdictRejected, []Outbound{
			unicast(partyID, "tossSideAck", TossSideAckPayload{OK: false, Message: "Side already taken. Choose the other."}),
		}
	}

	// switching sides releases the previously held one
	if prev, ok := t.picks[partyID]; ok && prev != side {
		delete(t.owners, prev)
	}
	t.picks[partyID] = side
	t.owners[side] = partyID

	outs := []Outbound{
		unicast(partyID, "tossSideAck", TossSideAckPayload{OK: true, YourSide: side}),
	}

	headsOwner, hasHeads := t.owners[sideHeads]
	tailsOwner, hasTails := t.owners[sideTails]
	if hasHeads && hasTails {
		m.phase = phaseTossFlipping
		if m.rng.Intn(2) == 0 {
			t.flipperID = headsOwner
		} else {
			t.flipperID = tailsOwner
		}
		for _, id := range [2]int{headsOwner, tailsOwner} {
			outs = append(outs, unicast(id, "tossSidesLocked", TossSidesLockedPayload{
				YouAreFlipper: id == t.flipperID,
			}))
		}
	}
	return verdictAccepted, outs
}

// flip is honored only from the designated flipper; anyone else is dropped
// without a reply.
func (m *Match) flip(partyID int) (verdict, []Outbound) {
	if m.phase != phaseTossFlipping || m.toss == nil {
		return verdictIgnored, nil
	}
	t := m.toss
	if partyID != t.flipperID {
		return verdictIgnored, nil
	}

	if m.rng.Intn(2) == 0 {
		t.outcome = sideHeads
	} else {
		t.outcome = sideTails
	}
	t.winnerID = t.owners[t.outcome]

	return verdictAccepted, []Outbound{
		broadcast("tossResult", TossResultPayload{
			Outcome:    t.outcome,
			WinnerID:   t.winnerID,
			WinnerSide: t.outcome,
		}),
	}
}

// chooseRole is honored only from the toss winner, after the flip.
func (m *Match) chooseRole(partyID int, chosen string) (verdict, []Outbound) {
	if m.phase != phaseTossFlipping || m.toss == nil {
		return verdictIgnored, nil
	}
	t := m.toss
	if t.winnerID == 0 || partyID != t.winnerID {
		return verdictIgnored, nil
	}
	if chosen != string(roleBatting) && chosen != string(roleBowling) {
		return verdictIgnored, nil
	}
	opponent := t.opponentOf(partyID)
	if opponent == 0 {
		return verdictIgnored, nil
	}

	if chosen == string(roleBatting) {
		m.battingID, m.bowlingID = partyID, opponent
	} else {
		m.battingID, m.bowlingID = opponent, partyID
	}

	m.phase = phasePlaying
	m.innings = 1
	m.runs1, m.runs2 = 0, 0
	m.wickets, m.ballsUsed = 0, 0
	m.target = nil
	m.toss = nil
	m.pending.clear()

	return verdictAccepted, []Outbound{
		unicast(m.battingID, "rolesAssigned", RolesAssignedPayload{YourRole: string(roleBatting), Message: "Innings 1 begins."}),
		unicast(m.bowlingID, "rolesAssigned", RolesAssignedPayload{YourRole: string(roleBowling), Message: "Innings 1 begins."}),
		broadcast("update", m.updatePayload()),
	}
}
