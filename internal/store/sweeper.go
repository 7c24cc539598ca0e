package store

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/klob0t/chloe/internal/logger"
)

// Sweeper periodically walks the conversation registry and backfills
// titles that earlier generations missed, e.g. when the process died
// mid-flight or the model was unreachable.
type Sweeper struct {
	store *Store
	cron  *cron.Cron
}

func NewSweeper(store *Store, schedule string) (*Sweeper, error) {
	s := &Sweeper{
		store: store,
		cron:  cron.New(),
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	logger.Info("[Sweeper] title backfill scheduled")
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	swept := 0
	for _, conv := range s.store.Conversations() {
		if conv.HasStableTitle() {
			continue
		}
		s.store.EnsureConversationTitle(context.Background(), conv.ID)
		swept++
	}
	if swept > 0 {
		logger.Debug("[Sweeper] visited %d untitled conversations", swept)
	}
}
