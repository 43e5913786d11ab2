package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/office_requests/internal/autherr"
	"github.com/Skotchmaster/office_requests/internal/models"
)

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	if err := r.conn(ctx).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return autherr.ErrDuplicateIdentity
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *GormRepo) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.conn(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, autherr.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.conn(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, autherr.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	return r.conn(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}

func (r *GormRepo) CreditBalance(ctx context.Context, id uint) (int, error) {
	var user models.User
	if err := r.conn(ctx).Select("id", "credits").Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, autherr.ErrUserNotFound
		}
		return 0, err
	}
	return user.Credits, nil
}

// DebitCredit takes one credit as a single conditional update, so two
// concurrent debits against a balance of 1 cannot both succeed.
func (r *GormRepo) DebitCredit(ctx context.Context, id uint) (int, error) {
	db := r.conn(ctx)
	res := db.Model(&models.User{}).
		Where("id = ? AND credits > 0", id).
		UpdateColumn("credits", gorm.Expr("credits - ?", 1))
	if res.Error != nil {
		return 0, fmt.Errorf("debit credit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.CreditBalance(ctx, id); err != nil {
			return 0, err
		}
		return 0, autherr.ErrInsufficientCredit
	}
	return r.CreditBalance(ctx, id)
}

func (r *GormRepo) SetCredits(ctx context.Context, id uint, credits int) error {
	if credits < 0 {
		return fmt.Errorf("%w: credits must be non-negative", autherr.ErrValidation)
	}
	res := r.conn(ctx).Model(&models.User{}).Where("id = ?", id).Update("credits", credits)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return autherr.ErrUserNotFound
	}
	return nil
}
