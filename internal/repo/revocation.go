package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/office_requests/internal/models"
)

// Register records a token's natural expiry. An existing row keeps its
// revocation stamp and only has its expiry overwritten.
func (r *GormRepo) Register(ctx context.Context, id models.TokenIdentity, expiresAt time.Time) error {
	row := models.RevokedToken{Identity: string(id), ExpiresAt: expiresAt.UTC()}
	err := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}},
		DoUpdates: clause.AssignmentColumns([]string{"expires_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("register token: %w", err)
	}
	return nil
}

// MarkExpiredNow stamps the revocation time on id. The row keeps the
// token's natural expiry so the revocation stays live for as long as the
// token could still pass a signature check. Repeating the call only moves
// the stamp.
func (r *GormRepo) MarkExpiredNow(ctx context.Context, id models.TokenIdentity, expiresAt time.Time) error {
	now := r.now()
	row := models.RevokedToken{Identity: string(id), ExpiresAt: expiresAt.UTC(), RevokedAt: &now}
	err := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}},
		DoUpdates: clause.AssignmentColumns([]string{"revoked_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *GormRepo) Purge(ctx context.Context, id models.TokenIdentity) error {
	if err := r.conn(ctx).Where("identity = ?", string(id)).Delete(&models.RevokedToken{}).Error; err != nil {
		return fmt.Errorf("purge token: %w", err)
	}
	return nil
}

// PurgeInert deletes rows whose expiry is before cutoff. Such rows already
// answer "not blocked", so removing them changes nothing observable.
func (r *GormRepo) PurgeInert(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.conn(ctx).Where("expires_at < ?", cutoff.UTC()).Delete(&models.RevokedToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge inert tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormRepo) RegistryEntry(ctx context.Context, id models.TokenIdentity) (*models.RevokedToken, error) {
	var row models.RevokedToken
	if err := r.conn(ctx).Where("identity = ?", string(id)).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// IsBlocked answers false when there is no row (fail-open) and false once
// the row's expiry has passed; the token is then left to the signature
// check, which rejects it as expired. It answers true only for a revoked
// row while now <= expires_at.
func (r *GormRepo) IsBlocked(ctx context.Context, id models.TokenIdentity) (bool, error) {
	row, err := r.RegistryEntry(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("lookup token: %w", err)
	}

	now := r.now()
	if row.ExpiresAt.Before(now) {
		return false, nil
	}
	return row.RevokedAt != nil, nil
}
