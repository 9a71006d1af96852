package game

import "encoding/json"

// Envelope WS envelope: {"type":"...","payload":{...}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// inbound payloads

type SetOversPayload struct {
	Overs      int    `json:"overs"`
	PlayerName string `json:"playerName"`
}

type TossChooseSidePayload struct {
	Side string `json:"side"` // heads|tails
}

type TossChooseRolePayload struct {
	Role string `json:"role"` // batting|bowling
}

type ChoicePayload struct {
	Value int `json:"value"` // 0-6
}

// outbound payloads

type HelloPayload struct {
	ID      int    `json:"id"`
	Message string `json:"message"`
}

type StatusPayload struct {
	Message string `json:"message"`
}

type OversAcceptedPayload struct {
	Overs int `json:"overs"`
}

type FullPayload struct {
	Message string `json:"message"`
}

type TossSideAckPayload struct {
	OK       bool   `json:"ok"`
	YourSide string `json:"yourSide,omitempty"`
	Message  string `json:"message,omitempty"`
}

type TossSidesLockedPayload struct {
	YouAreFlipper bool `json:"youAreFlipper"`
}

type TossResultPayload struct {
	Outcome    string `json:"outcome"`
	WinnerID   int    `json:"winnerId"`
	WinnerSide string `json:"winnerSide"`
}

type RolesAssignedPayload struct {
	YourRole string `json:"yourRole"` // batting|bowling
	Message  string `json:"message"`
}

type ResultPayload struct {
	Outcome       string `json:"outcome"` // out|score
	Runs          *int   `json:"runs,omitempty"`
	BatsmanChoice int    `json:"batsmanChoice"`
	BowlerChoice  int    `json:"bowlerChoice"`
}

type UpdatePayload struct {
	Innings    int  `json:"innings"`
	Score      int  `json:"score"`
	Wickets    int  `json:"wickets"`
	Target     *int `json:"target"` // null during innings 1
	BallsUsed  int  `json:"ballsUsed"`
	BallsLimit int  `json:"ballsLimit"`
}

type InningsChangePayload struct {
	Message    string `json:"message"`
	Target     int    `json:"target"`
	BallsLimit int    `json:"ballsLimit"`
}

type FinalScore struct {
	Score1     int `json:"score1"`
	Score2     int `json:"score2"`
	Target     int `json:"target"`
	BallsUsed1 int `json:"ballsUsed1"`
	BallsUsed2 int `json:"ballsUsed2"`
	Wickets1   int `json:"wickets1"`
	Wickets2   int `json:"wickets2"`
}

type MatchOverPayload struct {
	Result      string            `json:"result"` // chasingSideWon|defendingSideWon|tie
	Final       FinalScore        `json:"final"`
	PlayerNames map[string]string `json:"playerNames"` // player1/player2
	Message     string            `json:"message"`
}

type ResetPayload struct {
	Message string `json:"message"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Outbound is a message produced by a match handler. The room loop delivers
// it: To is a party id, or BroadcastTo for every connected party.
type Outbound struct {
	To  int
	Env Envelope
}

const BroadcastTo = 0

func newEnvelope(typ string, v any) Envelope {
	if v == nil {
		return Envelope{Type: typ}
	}
	return Envelope{Type: typ, Payload: mustJSON(v)}
}

func unicast(to int, typ string, v any) Outbound {
	return Outbound{To: to, Env: newEnvelope(typ, v)}
}

func broadcast(typ string, v any) Outbound {
	return Outbound{To: BroadcastTo, Env: newEnvelope(typ, v)}
}

func errorTo(to int, code, message string) Outbound {
	return unicast(to, "error", ErrorPayload{Code: code, Message: message})
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
