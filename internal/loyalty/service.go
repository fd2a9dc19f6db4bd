package loyalty

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/freshbasket/storefront-backend/pkg/db"
	"github.com/freshbasket/storefront-backend/pkg/db/models"
	"github.com/freshbasket/storefront-backend/pkg/enums"
	pkgerrors "github.com/freshbasket/storefront-backend/pkg/errors"
	"github.com/freshbasket/storefront-backend/pkg/logger"
	"github.com/freshbasket/storefront-backend/pkg/outbox"
	"github.com/freshbasket/storefront-backend/pkg/outbox/payloads"
	"github.com/freshbasket/storefront-backend/pkg/pagination"
)

const (
	constraintOrderEarn     = "loyalty_transactions_order_earn_key"
	constraintRefundBarcode = "loyalty_transactions_refund_barcode_key"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Ledger is the transaction-scoped surface used by the barcode issuer, which
// must redeem and refund inside its own transaction.
type Ledger interface {
	RedeemTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, points int64) (*Entry, error)
	RefundTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, points int64, barcodeID uuid.UUID) (*Entry, error)
}

// Service owns loyalty balances. Every balance change is paired with a
// transaction row and an outbox event in the same database transaction.
type Service interface {
	Ledger
	Earn(ctx context.Context, input EarnInput) (*Entry, error)
	EarnForOrder(ctx context.Context, userID uuid.UUID, amountSpent decimal.Decimal, orderID string) (*Entry, error)
	Redeem(ctx context.Context, userID uuid.UUID, points int64) (*Entry, error)
	Refund(ctx context.Context, userID uuid.UUID, points int64, barcodeID uuid.UUID) (*Entry, error)
	Balance(ctx context.Context, userID uuid.UUID) (*BalanceDTO, error)
	Transactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[TransactionDTO], error)
	Reconcile(ctx context.Context, userID uuid.UUID) (*ReconcileResult, error)
}

type ServiceParams struct {
	Repository   Repository
	Tx           txRunner
	Outbox       outbox.Emitter
	Logger       *logger.Logger
	DefaultLimit int
}

type service struct {
	repo         Repository
	tx           txRunner
	outbox       outbox.Emitter
	logg         *logger.Logger
	defaultLimit int
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("loyalty repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:         params.Repository,
		tx:           params.Tx,
		outbox:       params.Outbox,
		logg:         logg,
		defaultLimit: params.DefaultLimit,
	}, nil
}

// ValidateRedeemAmount enforces whole blocks of RedemptionBlock points.
func ValidateRedeemAmount(points int64) error {
	if points < RedemptionBlock || points%RedemptionBlock != 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, fmt.Sprintf("points must be a positive multiple of %d", RedemptionBlock)).
			WithDetails(map[string]any{"points": points, "block": RedemptionBlock})
	}
	return nil
}

func (s *service) Earn(ctx context.Context, input EarnInput) (*Entry, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Points < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "points must be >= 1")
	}
	if input.OrderID != nil && strings.TrimSpace(*input.OrderID) == "" {
		input.OrderID = nil
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = DescriptionOrder
	}

	var entry *Entry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		entry, err = s.credit(ctx, tx, models.LoyaltyTransaction{
			UserID:      input.UserID,
			Points:      input.Points,
			Type:        enums.LoyaltyTransactionEarned,
			Description: description,
			OrderID:     input.OrderID,
		}, enums.EventLoyaltyPointsEarned)
		return err
	})
	if err != nil {
		if isUnique(err, constraintOrderEarn, "loyalty_transactions.order_id") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "points already earned for this order")
		}
		return nil, asLedgerError(err, "earn points")
	}
	s.logTransition(ctx, "loyalty.earned", input.UserID, entry)
	return entry, nil
}

// EarnForOrder awards one point per whole currency unit spent.
func (s *service) EarnForOrder(ctx context.Context, userID uuid.UUID, amountSpent decimal.Decimal, orderID string) (*Entry, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if amountSpent.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount spent must be >= 0")
	}
	points := amountSpent.Floor().IntPart()
	if points < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "order amount earns no points")
	}
	return s.Earn(ctx, EarnInput{
		UserID:      userID,
		Points:      points,
		Description: fmt.Sprintf("order %s", orderID),
		OrderID:     &orderID,
	})
}

func (s *service) Redeem(ctx context.Context, userID uuid.UUID, points int64) (*Entry, error) {
	var entry *Entry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		entry, err = s.RedeemTx(ctx, tx, userID, points)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// RedeemTx decrements the balance with a conditional update. Zero affected
// rows means the balance did not cover the request.
func (s *service) RedeemTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, points int64) (*Entry, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := ValidateRedeemAmount(points); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	ok, err := repo.DecrementIfSufficient(ctx, userID, points)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem points")
	}
	if !ok {
		var balance int64
		account, err := repo.GetAccount(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load balance")
		}
		if account != nil {
			balance = account.PointsBalance
		}
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient points balance").
			WithDetails(map[string]any{"balance": balance, "requested": points})
	}

	txn := models.LoyaltyTransaction{
		UserID:      userID,
		Points:      -points,
		Type:        enums.LoyaltyTransactionRedeemed,
		Description: DescriptionRedeemed,
	}
	if err := repo.InsertTransaction(ctx, &txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record redemption")
	}
	balance, err := s.balanceTx(ctx, repo, userID)
	if err != nil {
		return nil, err
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventLoyaltyPointsRedeemed,
		AggregateType: enums.AggregateLoyaltyAccount,
		AggregateID:   userID,
		Actor:         &outbox.ActorRef{UserID: userID},
		Data: payloads.LoyaltyPointsRedeemedEvent{
			TransactionID: txn.ID,
			UserID:        userID,
			Points:        points,
			Balance:       balance,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit redemption event")
	}

	entry := &Entry{Transaction: toTransactionDTO(txn), Balance: balance}
	s.logTransition(ctx, "loyalty.redeemed", userID, entry)
	return entry, nil
}

func (s *service) Refund(ctx context.Context, userID uuid.UUID, points int64, barcodeID uuid.UUID) (*Entry, error) {
	var entry *Entry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		entry, err = s.RefundTx(ctx, tx, userID, points, barcodeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// RefundTx credits points back for a cancelled barcode. A second refund for
// the same barcode is rejected by the unique index on barcode_id.
func (s *service) RefundTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, points int64, barcodeID uuid.UUID) (*Entry, error) {
	if userID == uuid.Nil || barcodeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and barcode id are required")
	}
	if points < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "points must be >= 1")
	}
	entry, err := s.credit(ctx, tx, models.LoyaltyTransaction{
		UserID:      userID,
		Points:      points,
		Type:        enums.LoyaltyTransactionEarned,
		Description: DescriptionRefund,
		BarcodeID:   &barcodeID,
	}, enums.EventLoyaltyPointsRefunded)
	if err != nil {
		if isUnique(err, constraintRefundBarcode, "loyalty_transactions.barcode_id") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidState, err, "barcode already refunded")
		}
		return nil, asLedgerError(err, "refund points")
	}
	s.logTransition(ctx, "loyalty.refunded", userID, entry)
	return entry, nil
}

func (s *service) credit(ctx context.Context, tx *gorm.DB, txn models.LoyaltyTransaction, eventType enums.OutboxEventType) (*Entry, error) {
	repo := s.repo.WithTx(tx)
	if err := repo.EnsureAccount(ctx, txn.UserID); err != nil {
		return nil, err
	}
	if err := repo.InsertTransaction(ctx, &txn); err != nil {
		return nil, err
	}
	if err := repo.Increment(ctx, txn.UserID, txn.Points); err != nil {
		return nil, err
	}
	balance, err := s.balanceTx(ctx, repo, txn.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateLoyaltyAccount,
		AggregateID:   txn.UserID,
		Data: payloads.LoyaltyPointsEarnedEvent{
			TransactionID: txn.ID,
			UserID:        txn.UserID,
			Points:        txn.Points,
			Balance:       balance,
			Description:   txn.Description,
			OrderID:       txn.OrderID,
			BarcodeID:     txn.BarcodeID,
		},
	}); err != nil {
		return nil, err
	}
	return &Entry{Transaction: toTransactionDTO(txn), Balance: balance}, nil
}

func (s *service) balanceTx(ctx context.Context, repo Repository, userID uuid.UUID) (int64, error) {
	account, err := repo.GetAccount(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load balance")
	}
	if account == nil {
		return 0, nil
	}
	return account.PointsBalance, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (*BalanceDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	balance, err := s.balanceTx(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	return &BalanceDTO{
		UserID:           userID,
		PointsBalance:    balance,
		RedeemablePoints: balance - balance%RedemptionBlock,
	}, nil
}

func (s *service) Transactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[TransactionDTO], error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	limit = pagination.NormalizeLimit(limit)

	rows, err := s.repo.ListTransactions(ctx, userID, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	page := pagination.Trim(rows, limit, func(t models.LoyaltyTransaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	items := make([]TransactionDTO, 0, len(page.Items))
	for _, row := range page.Items {
		items = append(items, toTransactionDTO(row))
	}
	return &pagination.Page[TransactionDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

// Reconcile checks that the stored balance equals the sum of the log.
func (s *service) Reconcile(ctx context.Context, userID uuid.UUID) (*ReconcileResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	result := &ReconcileResult{UserID: userID}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		balance, err := s.balanceTx(ctx, repo, userID)
		if err != nil {
			return err
		}
		sum, count, err := repo.SumTransactions(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum transactions")
		}
		result.PointsBalance = balance
		result.LedgerSum = sum
		result.TransactionCount = count
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Consistent = result.PointsBalance == result.LedgerSum
	if !result.Consistent {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"user_id":    userID.String(),
			"balance":    result.PointsBalance,
			"ledger_sum": result.LedgerSum,
		}), "loyalty.reconcile_mismatch")
	}
	return result, nil
}

func (s *service) logTransition(ctx context.Context, msg string, userID uuid.UUID, entry *Entry) {
	if entry == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":        userID.String(),
		"transaction_id": entry.Transaction.ID.String(),
		"points":         entry.Transaction.Points,
		"balance":        entry.Balance,
	}), msg)
}

// isUnique matches the named constraint on Postgres and the column list in
// SQLite's message, which omits index names.
func isUnique(err error, constraint, column string) bool {
	return db.IsUniqueViolation(err, constraint) || db.IsUniqueViolation(err, column)
}

func asLedgerError(err error, message string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
