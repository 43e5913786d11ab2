package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/office_requests/internal/autherr"
	"github.com/Skotchmaster/office_requests/internal/models"
)

func (r *GormRepo) CreateAPIKey(ctx context.Context, userID uint, value string) (*models.APIKey, error) {
	key := models.APIKey{UserID: userID, Key: value}
	if err := r.conn(ctx).Create(&key).Error; err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}
	return &key, nil
}

func (r *GormRepo) APIKeyByValue(ctx context.Context, value string) (*models.APIKey, error) {
	var key models.APIKey
	if err := r.conn(ctx).Where("api_key = ?", value).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, autherr.ErrAPIKeyNotFound
		}
		return nil, err
	}
	return &key, nil
}

// APIKeyByUser returns the oldest key owned by userID.
func (r *GormRepo) APIKeyByUser(ctx context.Context, userID uint) (*models.APIKey, error) {
	var key models.APIKey
	if err := r.conn(ctx).Where("user_id = ?", userID).Order("id").First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, autherr.ErrAPIKeyNotFound
		}
		return nil, err
	}
	return &key, nil
}

func (r *GormRepo) DeleteAPIKeysByUser(ctx context.Context, userID uint) error {
	res := r.conn(ctx).Where("user_id = ?", userID).Delete(&models.APIKey{})
	if res.Error != nil {
		return fmt.Errorf("delete api key: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return autherr.ErrAPIKeyNotFound
	}
	return nil
}
