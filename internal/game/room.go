package game

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"time"
)

// roomMsg is the room actor's inbox vocabulary. Every mutation of room or
// match state happens on the room goroutine, one message at a time, in
// arrival order.
type roomMsg interface{ isRoomMsg() }

type joinRoom struct {
	userID string
	name   string
	conn   *ClientConn
	reply  chan joinReply
}

type leaveRoom struct{ partyID int }

type fromParty struct {
	partyID int
	env     Envelope
}

type getView struct{ reply chan RoomView }

type stopRoom struct{}

func (joinRoom) isRoomMsg()  {}
func (leaveRoom) isRoomMsg() {}
func (fromParty) isRoomMsg() {}
func (getView) isRoomMsg()   {}
func (stopRoom) isRoomMsg()  {}

type joinReply struct {
	partyID int
	errCode string
	errMsg  string
}

// RoomView is a race-free copy of room internals for tests and diagnostics.
type RoomView struct {
	Parties   int
	Phase     string
	Innings   int
	Score1    int
	Score2    int
	Wickets   int
	BallsUsed int
	Target    int // 0 when unset
}

// Party is one connected participant.
type Party struct {
	id     int
	userID string
	conn   *ClientConn
}

// MatchResult is handed to the result hook when a match ends with a scored
// outcome. Aborts never produce one.
type MatchResult struct {
	RoomID       string
	WinnerUserID string
	LoserUserID  string
	Tie          bool
	TieUserIDs   [2]string
}

type RoomConfig struct {
	Rand     *rand.Rand        // nil => time-seeded source
	Logger   *slog.Logger      // nil => slog.Default()
	OnResult func(MatchResult) // optional
}

// Room is a single two-party session: registry, router and match in one
// actor. A room owns its Match exclusively; the transport only ever talks
// to it through the inbox.
type Room struct {
	id    string
	inbox chan roomMsg

	parties map[int]*Party
	order   []int // admission order
	nextID  int

	match *Match
	rng   *rand.Rand

	log      *slog.Logger
	onResult func(MatchResult)

	ctx    context.Context
	cancel context.CancelFunc
}

func NewRoom(parent context.Context, id string, cfg RoomConfig) *Room {
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)

	r := &Room{
		id:       id,
		inbox:    make(chan roomMsg, 64),
		parties:  make(map[int]*Party),
		nextID:   1,
		rng:      cfg.Rand,
		log:      cfg.Logger.With("room", id),
		onResult: cfg.OnResult,
		ctx:      ctx,
		cancel:   cancel,
	}
	r.match = newMatch(r.rng)

	go r.loop()
	return r
}

// Join admits a connection. A non-empty errCode means the connection was
// rejected and must be closed by the caller.
func (r *Room) Join(userID, name string, cc *ClientConn) (partyID int, errCode, errMsg string) {
	reply := make(chan joinReply, 1)
	select {
	case r.inbox <- joinRoom{userID: userID, name: name, conn: cc, reply: reply}:
	case <-r.ctx.Done():
		return 0, "room_closed", "room is closed"
	}
	res := <-reply
	return res.partyID, res.errCode, res.errMsg
}

func (r *Room) Leave(partyID int) {
	select {
	case r.inbox <- leaveRoom{partyID: partyID}:
	case <-r.ctx.Done():
	}
}

// Deliver feeds one inbound envelope from a party into the room.
func (r *Room) Deliver(partyID int, env Envelope) {
	select {
	case r.inbox <- fromParty{partyID: partyID, env: env}:
	case <-r.ctx.Done():
	}
}

// View returns a snapshot of room state. Because the inbox is FIFO, the
// reply reflects every message delivered before the call.
func (r *Room) View() RoomView {
	reply := make(chan RoomView, 1)
	select {
	case r.inbox <- getView{reply: reply}:
		return <-reply
	case <-r.ctx.Done():
		return RoomView{}
	}
}

func (r *Room) Close() {
	select {
	case r.inbox <- stopRoom{}:
	case <-r.ctx.Done():
	}
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			return
		case msg := <-r.inbox:
			switch m := msg.(type) {
			case joinRoom:
				r.handleJoin(m)
			case leaveRoom:
				r.handleLeave(m.partyID)
			case fromParty:
				r.dispatch(m.partyID, m.env)
			case getView:
				m.reply <- r.view()
			case stopRoom:
				r.cancel()
				return
			}
		}
	}
}

func (r *Room) handleJoin(m joinRoom) {
	if len(r.parties) >= 2 {
		// rejected without being admitted; the caller informs and closes
		m.reply <- joinReply{errCode: "room_full", errMsg: "Room full. Try again later."}
		r.log.Info("connection rejected, room full")
		return
	}

	id := r.nextID
	r.nextID++
	p := &Party{id: id, userID: m.userID, conn: m.conn}
	r.parties[id] = p
	r.order = append(r.order, id)
	r.match.setName(id, m.name)

	m.reply <- joinReply{partyID: id}
	r.sendTo(p.conn, newEnvelope("hello", HelloPayload{
		ID:      id,
		Message: "Connected. Select overs and wait for opponent...",
	}))
	r.log.Info("party admitted", "party", id)

	r.tryStartMatch()
}

// tryStartMatch begins the toss once exactly two parties are present and
// the armed match has not started.
func (r *Room) tryStartMatch() {
	if len(r.order) != 2 || r.match.phase != phaseWaiting {
		return
	}
	outs := r.match.begin(r.order[0], r.order[1])
	r.deliver(outs)
	r.log.Info("toss started")
}

func (r *Room) handleLeave(partyID int) {
	if _, ok := r.parties[partyID]; !ok {
		return
	}
	delete(r.parties, partyID)
	for i, id := range r.order {
		if id == partyID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.log.Info("party left", "party", partyID, "phase", string(r.match.phase))

	// any in-flight match is aborted unconditionally; no result is
	// synthesized for an abort
	r.armMatch()
	for _, p := range r.parties {
		r.sendTo(p.conn, newEnvelope("reset", ResetPayload{
			Message: "Opponent disconnected. Waiting for a new player.",
		}))
	}
}

// armMatch discards the current match and arms a fresh waiting one,
// keeping the display names of parties still connected.
func (r *Room) armMatch() {
	names := make(map[int]string)
	for id := range r.parties {
		if n, ok := r.match.names[id]; ok {
			names[id] = n
		}
	}
	r.match = newMatch(r.rng)
	r.match.names = names
}

func (r *Room) dispatch(partyID int, env Envelope) {
	if _, ok := r.parties[partyID]; !ok {
		return
	}

	var (
		v    verdict
		outs []Outbound
	)

	switch env.Type {
	case "setOvers":
		var p SetOversPayload
		if !r.decode(partyID, env.Payload, &p) {
			return
		}
		v, outs = r.match.setOvers(partyID, p)

	case "tossChooseSide":
		var p TossChooseSidePayload
		if !r.decode(partyID, env.Payload, &p) {
			return
		}
		v, outs = r.match.chooseSide(partyID, p.Side)

	case "tossFlip":
		v, outs = r.match.flip(partyID)

	case "tossChooseRole":
		var p TossChooseRolePayload
		if !r.decode(partyID, env.Payload, &p) {
			return
		}
		v, outs = r.match.chooseRole(partyID, p.Role)

	case "choice":
		var p ChoicePayload
		if !r.decode(partyID, env.Payload, &p) {
			return
		}
		v, outs = r.match.submitChoice(partyID, p.Value)

	default:
		r.sendParty(partyID, newEnvelope("error", ErrorPayload{Code: "unknown_type", Message: "Unknown message type."}))
		return
	}

	if v == verdictIgnored {
		r.log.Debug("message dropped", "party", partyID, "type", env.Type)
	}
	r.deliver(outs)

	if r.match.phase == phaseFinished {
		r.finishMatch()
	}
}

func (r *Room) decode(partyID int, raw json.RawMessage, v any) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		r.sendParty(partyID, newEnvelope("error", ErrorPayload{Code: "bad_input", Message: "invalid payload"}))
		return false
	}
	return true
}

func (r *Room) finishMatch() {
	m := r.match
	r.log.Info("match finished",
		"result", m.result,
		"score1", m.runs1,
		"score2", m.runs2,
	)

	if r.onResult != nil {
		res := MatchResult{RoomID: r.id}
		if winner, loser, tie := m.resultParties(); tie {
			res.Tie = true
			res.TieUserIDs[0] = r.userIDOf(m.partyIDs[0])
			res.TieUserIDs[1] = r.userIDOf(m.partyIDs[1])
		} else {
			res.WinnerUserID = r.userIDOf(winner)
			res.LoserUserID = r.userIDOf(loser)
		}
		r.onResult(res)
	}

	// a fresh waiting match is armed for whoever stays
	r.armMatch()
}

func (r *Room) userIDOf(partyID int) string {
	if p, ok := r.parties[partyID]; ok {
		return p.userID
	}
	return ""
}

func (r *Room) deliver(outs []Outbound) {
	for _, o := range outs {
		if o.To == BroadcastTo {
			for _, p := range r.parties {
				r.sendTo(p.conn, o.Env)
			}
			continue
		}
		r.sendParty(o.To, o.Env)
	}
}

func (r *Room) sendParty(partyID int, env Envelope) {
	if p, ok := r.parties[partyID]; ok {
		r.sendTo(p.conn, env)
	}
}

// sendTo is fire-and-forget: a slow or gone consumer never blocks the loop.
func (r *Room) sendTo(conn *ClientConn, env Envelope) {
	if conn == nil {
		return
	}
	if !conn.enqueue(env) {
		r.log.Debug("dropped outbound message", "type", env.Type)
	}
}

func (r *Room) view() RoomView {
	v := RoomView{
		Parties:   len(r.parties),
		Phase:     string(r.match.phase),
		Innings:   r.match.innings,
		Score1:    r.match.runs1,
		Score2:    r.match.runs2,
		Wickets:   r.match.wickets,
		BallsUsed: r.match.ballsUsed,
	}
	if r.match.target != nil {
		v.Target = *r.match.target
	}
	return v
}
