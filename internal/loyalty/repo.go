package loyalty

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/freshbasket/storefront-backend/pkg/db/models"
	"github.com/freshbasket/storefront-backend/pkg/pagination"
)

// Repository persists balances and the append-only transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	EnsureAccount(ctx context.Context, userID uuid.UUID) error
	GetAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error)
	Increment(ctx context.Context, userID uuid.UUID, points int64) error
	DecrementIfSufficient(ctx context.Context, userID uuid.UUID, points int64) (bool, error)
	InsertTransaction(ctx context.Context, txn *models.LoyaltyTransaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.LoyaltyTransaction, error)
	SumTransactions(ctx context.Context, userID uuid.UUID) (sum int64, count int64, err error)
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

func (r *repository) EnsureAccount(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.LoyaltyAccount{UserID: userID}).Error
}

// GetAccount returns nil, nil when the user has never earned.
func (r *repository) GetAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	if err := r.db.WithContext(ctx).First(&account, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) Increment(ctx context.Context, userID uuid.UUID, points int64) error {
	return r.db.WithContext(ctx).
		Model(&models.LoyaltyAccount{}).
		Where("user_id = ?", userID).
		Update("points_balance", gorm.Expr("points_balance + ?", points)).Error
}

// DecrementIfSufficient subtracts points only when the balance covers them.
// The check and the write are one statement, so concurrent redeems cannot
// both pass.
func (r *repository) DecrementIfSufficient(ctx context.Context, userID uuid.UUID, points int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LoyaltyAccount{}).
		Where("user_id = ? AND points_balance >= ?", userID, points).
		Update("points_balance", gorm.Expr("points_balance - ?", points))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) InsertTransaction(ctx context.Context, txn *models.LoyaltyTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// ListTransactions pages newest first on a (created_at, id) keyset.
func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.LoyaltyTransaction, error) {
	qb := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.LoyaltyTransaction
	err := qb.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) SumTransactions(ctx context.Context, userID uuid.UUID) (int64, int64, error) {
	var out struct {
		Total int64
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.LoyaltyTransaction{}).
		Select("COALESCE(SUM(points), 0) AS total, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Scan(&out).Error
	return out.Total, out.Count, err
}
