package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/repo"
)

// EnsurePairing records that accountID's owner (ownerUserID) is paired with
// partnerUserID. Calling it any number of times with the same pair leaves
// exactly one relationship row: a missing row is created, an inactive row is
// reactivated, an active row is left untouched.
func EnsurePairing(ctx context.Context, db *gorm.DB, accountID, ownerUserID, partnerUserID uint, pairedTime *time.Time) error {
	existing, err := repo.GetPairing(ctx, db, accountID, partnerUserID)
	if err != nil {
		return err
	}
	if existing == nil {
		return repo.CreatePairing(ctx, db, &domain.PairedRelationship{
			AccountID:    accountID,
			UserID:       ownerUserID,
			PairedUserID: partnerUserID,
			PairedTime:   pairedTime,
			IsActive:     true,
		})
	}
	if !existing.IsActive {
		return db.WithContext(ctx).
			Model(&domain.PairedRelationship{}).
			Where("id = ?", existing.ID).
			Update("is_active", true).Error
	}
	return nil
}
