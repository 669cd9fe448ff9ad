package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
)

// GetPairing returns the relationship row for (account, partner), or nil
// when the pair was never linked.
func GetPairing(ctx context.Context, db *gorm.DB, accountID, pairedUserID uint) (*domain.PairedRelationship, error) {
	var r domain.PairedRelationship
	err := db.WithContext(ctx).
		First(&r, "account_id = ? AND paired_user_id = ?", accountID, pairedUserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreatePairing inserts a new active relationship row.
func CreatePairing(ctx context.Context, db *gorm.DB, r *domain.PairedRelationship) error {
	return db.WithContext(ctx).Create(r).Error
}

// DeactivatePairing flips a relationship to inactive; rows are never deleted.
func DeactivatePairing(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).
		Model(&domain.PairedRelationship{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
