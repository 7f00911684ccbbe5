package headlines

import (
	"context"

	"go.uber.org/zap"

	"github.com/TobiSchelling/headlinestudio/internal/database"
)

// IsFavorite reports whether the user starred id.
func (s *Service) IsFavorite(rc database.RequestContext, id string) (bool, error) {
	return s.store.IsFavorite(rc, id)
}

// ToggleFavorite flips the favorite state of id for the user and returns the
// new state. Without a user or snapshot, or when the store fails, nothing
// changes: a warning is logged and the previous state is returned.
func (s *Service) ToggleFavorite(ctx context.Context, rc database.RequestContext, id, sourceTable string, snap *database.Snapshot) bool {
	log := s.logger.With(zap.String("user", rc.User), zap.String("id", id), zap.String("source_table", sourceTable))

	previous, err := s.store.IsFavorite(rc, id)
	if err != nil {
		log.Warn("reading favorite state", zap.Error(err))
		return false
	}
	if rc.User == "" || snap == nil {
		log.Warn("favorite toggle ignored: missing user or headline snapshot")
		return previous
	}
	if err := ctx.Err(); err != nil {
		log.Warn("favorite toggle canceled", zap.Error(err))
		return previous
	}

	state, err := s.store.ToggleFavorite(rc, id, sourceTable, *snap)
	if err != nil {
		log.Warn("favorite toggle failed", zap.Error(err))
		return previous
	}
	return state
}
