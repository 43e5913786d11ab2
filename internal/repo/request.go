package repo

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/office_requests/internal/models"
)

func (r *GormRepo) CreateRequest(ctx context.Context, req *models.Request) error {
	if err := r.conn(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

func (r *GormRepo) RequestsByUser(ctx context.Context, userID uint) ([]models.Request, error) {
	var out []models.Request
	if err := r.conn(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) AllRequests(ctx context.Context, offset, limit int) ([]models.Request, int64, error) {
	var (
		out   []models.Request
		total int64
	)
	db := r.conn(ctx).Model(&models.Request{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := r.conn(ctx).Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
