package game

import (
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"net/http"

	"example.com/handcricket/internal/auth"
)

// TokenVerifier authenticates a WS upgrade token.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type Server struct {
	rooms    *RoomService
	verifier TokenVerifier
	log      *slog.Logger
}

func NewServer(rooms *RoomService, verifier TokenVerifier, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		rooms:    rooms,
		verifier: verifier,
		log:      log,
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/rooms", s.handleCreateRoom)
	mux.HandleFunc("/ws/", s.handleWS)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	roomID := randID(10)
	if _, err := s.rooms.Create(r.Context(), roomID); err != nil {
		s.log.Error("create room", "err", err)
		http.Error(w, "failed to create room", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"roomId": roomID,
	})
}

func randID(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
