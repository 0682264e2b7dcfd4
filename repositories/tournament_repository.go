package repositories

import (
	"context"
	"errors"
	"fmt"

	"tournament-registration/lifecycle"
	"tournament-registration/models"

	"gorm.io/gorm"
)

// ErrTournamentNotFound wraps lifecycle.ErrNotFound so callers can match either.
var ErrTournamentNotFound = fmt.Errorf("tournament: %w", lifecycle.ErrNotFound)

type TournamentRepository struct {
	db *gorm.DB
}

func NewTournamentRepository(db *gorm.DB) *TournamentRepository {
	return &TournamentRepository{db: db}
}

func (r *TournamentRepository) Get(ctx context.Context, id string) (*models.Tournament, error) {
	var t models.Tournament
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, storeErr("get tournament", err)
	}
	return &t, nil
}

func (r *TournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return storeErr("create tournament", err)
	}
	return nil
}
