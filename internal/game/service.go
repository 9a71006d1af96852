package game

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// StatsRecorder records finished-match outcomes. May be nil.
type StatsRecorder interface {
	RecordResult(ctx context.Context, winnerUserID, loserUserID string, tie bool) error
}

// RoomService owns the in-memory room set and the shared room directory.
// Room codes resolve through the directory so they survive restarts; live
// match state does not (a disconnect aborts the match anyway).
type RoomService struct {
	mu sync.Mutex
	in map[string]*Room

	dir   RoomDirectory
	stats StatsRecorder
	log   *slog.Logger

	ctx context.Context // parent for room goroutines
}

func NewRoomService(ctx context.Context, dir RoomDirectory, stats StatsRecorder, log *slog.Logger) *RoomService {
	if log == nil {
		log = slog.Default()
	}
	return &RoomService{
		in:    make(map[string]*Room),
		dir:   dir,
		stats: stats,
		log:   log,
		ctx:   ctx,
	}
}

func (s *RoomService) Create(ctx context.Context, roomID string) (*Room, error) {
	rec := RoomRecord{RoomID: roomID, CreatedAt: time.Now().UTC()}
	if err := s.dir.Save(ctx, rec); err != nil {
		return nil, err
	}

	room := s.spawn(roomID)
	s.mu.Lock()
	s.in[roomID] = room
	s.mu.Unlock()
	return room, nil
}

func (s *RoomService) GetOrLoad(ctx context.Context, roomID string) (*Room, bool, error) {
	s.mu.Lock()
	room, ok := s.in[roomID]
	s.mu.Unlock()
	if ok {
		return room, true, nil
	}

	_, found, err := s.dir.Load(ctx, roomID)
	if err != nil || !found {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.in[roomID]; ok {
		return room, true, nil
	}
	room = s.spawn(roomID)
	s.in[roomID] = room
	return room, true, nil
}

func (s *RoomService) spawn(roomID string) *Room {
	return NewRoom(s.ctx, roomID, RoomConfig{
		Logger: s.log,
		OnResult: func(res MatchResult) {
			// off the room goroutine: the DB write must not stall the loop
			go s.recordResult(res)
		},
	})
}

func (s *RoomService) recordResult(res MatchResult) {
	if s.stats == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if res.Tie {
		err = s.stats.RecordResult(ctx, res.TieUserIDs[0], res.TieUserIDs[1], true)
	} else {
		err = s.stats.RecordResult(ctx, res.WinnerUserID, res.LoserUserID, false)
	}
	if err != nil {
		s.log.Error("record match result", "room", res.RoomID, "err", err)
	}
}
