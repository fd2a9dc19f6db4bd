package barcodes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshbasket/storefront-backend/pkg/db/models"
	"github.com/freshbasket/storefront-backend/pkg/enums"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, barcode *models.RedemptionBarcode) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.RedemptionBarcode, error)
	FindByCode(ctx context.Context, code string) (*models.RedemptionBarcode, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.RedemptionBarcode, error)
	ListOverdue(ctx context.Context, userID *uuid.UUID, now time.Time, limit int) ([]models.RedemptionBarcode, error)
	Transition(ctx context.Context, id uuid.UUID, to enums.BarcodeStatus, now time.Time, orderID *string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, barcode *models.RedemptionBarcode) error {
	return r.db.WithContext(ctx).Create(barcode).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RedemptionBarcode, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.RedemptionBarcode, error) {
	return r.first(ctx, "code = ?", code)
}

func (r *repository) first(ctx context.Context, query string, arg any) (*models.RedemptionBarcode, error) {
	var barcode models.RedemptionBarcode
	if err := r.db.WithContext(ctx).Where(query, arg).First(&barcode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &barcode, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.RedemptionBarcode, error) {
	var rows []models.RedemptionBarcode
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// ListOverdue returns active barcodes whose expiry has passed, optionally
// scoped to one user.
func (r *repository) ListOverdue(ctx context.Context, userID *uuid.UUID, now time.Time, limit int) ([]models.RedemptionBarcode, error) {
	qb := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", enums.BarcodeStatusActive, now)
	if userID != nil {
		qb = qb.Where("user_id = ?", *userID)
	}
	if limit > 0 {
		qb = qb.Limit(limit)
	}
	var rows []models.RedemptionBarcode
	err := qb.Order("expires_at ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

// Transition moves an active barcode into a terminal status. Used and
// cancelled require the barcode to be unexpired; expired requires the
// opposite. It reports false when the row was not in a transitionable state.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, to enums.BarcodeStatus, now time.Time, orderID *string) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": now,
	}
	qb := r.db.WithContext(ctx).
		Model(&models.RedemptionBarcode{}).
		Where("id = ? AND status = ?", id, enums.BarcodeStatusActive)

	switch to {
	case enums.BarcodeStatusUsed:
		updates["used_at"] = now
		if orderID != nil {
			updates["order_id"] = *orderID
		}
		qb = qb.Where("expires_at >= ?", now)
	case enums.BarcodeStatusCancelled:
		updates["cancelled_at"] = now
		qb = qb.Where("expires_at >= ?", now)
	case enums.BarcodeStatusExpired:
		updates["expired_at"] = now
		qb = qb.Where("expires_at < ?", now)
	default:
		return false, errors.New("unsupported barcode transition")
	}

	res := qb.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
