package barcodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshbasket/storefront-backend/internal/loyalty"
	"github.com/freshbasket/storefront-backend/pkg/config"
	"github.com/freshbasket/storefront-backend/pkg/db"
	"github.com/freshbasket/storefront-backend/pkg/db/models"
	"github.com/freshbasket/storefront-backend/pkg/enums"
	pkgerrors "github.com/freshbasket/storefront-backend/pkg/errors"
	"github.com/freshbasket/storefront-backend/pkg/logger"
	"github.com/freshbasket/storefront-backend/pkg/metrics"
	"github.com/freshbasket/storefront-backend/pkg/outbox"
	"github.com/freshbasket/storefront-backend/pkg/outbox/payloads"
)

const (
	constraintCode = "redemption_barcodes_code_key"

	defaultTTL          = 30 * 24 * time.Hour
	defaultCodeAttempts = 5
	expireBatchSize     = 200
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service issues and consumes redemption barcodes.
type Service interface {
	Issue(ctx context.Context, input IssueInput) (*IssueResult, error)
	Cancel(ctx context.Context, barcodeID, userID uuid.UUID) (*CancelResult, error)
	RedeemAtCheckout(ctx context.Context, input RedeemInput) (*BarcodeDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]BarcodeDTO, error)
	Validate(ctx context.Context, userID uuid.UUID, code string) (*models.RedemptionBarcode, error)
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Ledger     loyalty.Ledger
	Outbox     outbox.Emitter
	Config     config.LoyaltyConfig
	Metrics    *metrics.BarcodeMetrics
	Logger     *logger.Logger
	Codes      CodeGenerator
	Clock      func() time.Time
}

type service struct {
	repo         Repository
	tx           txRunner
	ledger       loyalty.Ledger
	outbox       outbox.Emitter
	metrics      *metrics.BarcodeMetrics
	logg         *logger.Logger
	codes        CodeGenerator
	clock        func() time.Time
	ttl          time.Duration
	codeAttempts int
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("barcode repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("loyalty ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	svc := &service{
		repo:         params.Repository,
		tx:           params.Tx,
		ledger:       params.Ledger,
		outbox:       params.Outbox,
		metrics:      params.Metrics,
		logg:         params.Logger,
		codes:        params.Codes,
		clock:        params.Clock,
		ttl:          params.Config.BarcodeTTL,
		codeAttempts: params.Config.CodeMaxAttempts,
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.codes == nil {
		svc.codes = GenerateCode
	}
	if svc.clock == nil {
		svc.clock = db.NowUTC
	}
	if svc.ttl <= 0 {
		svc.ttl = defaultTTL
	}
	if svc.codeAttempts <= 0 {
		svc.codeAttempts = defaultCodeAttempts
	}
	return svc, nil
}

func (s *service) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// Issue redeems points and stores a new active barcode in one transaction. A
// code collision rolls the whole attempt back and retries with a fresh code.
func (s *service) Issue(ctx context.Context, input IssueInput) (*IssueResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := loyalty.ValidateRedeemAmount(input.Points); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.codeAttempts; attempt++ {
		code, err := s.codes()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate barcode code")
		}
		result, err := s.issueWithCode(ctx, input, code)
		if err == nil {
			s.metrics.Issued(input.Points)
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"user_id":    input.UserID.String(),
				"barcode_id": result.Barcode.ID.String(),
				"points":     input.Points,
			}), "barcode.issued")
			return result, nil
		}
		if pkgerrors.As(err) == nil && isUnique(err, constraintCode, "redemption_barcodes.code") {
			s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "barcode.code_collision")
			continue
		}
		if pkgerrors.As(err) == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue barcode")
		}
		return nil, err
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique barcode code")
}

func (s *service) issueWithCode(ctx context.Context, input IssueInput, code string) (*IssueResult, error) {
	var result *IssueResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		entry, err := s.ledger.RedeemTx(ctx, tx, input.UserID, input.Points)
		if err != nil {
			return err
		}

		now := s.now()
		barcode := models.RedemptionBarcode{
			UserID:        input.UserID,
			Code:          code,
			PointsValue:   input.Points,
			MonetaryValue: MonetaryValueFor(input.Points),
			Status:        enums.BarcodeStatusActive,
			CreatedAt:     now,
			ExpiresAt:     now.Add(s.ttl),
			UpdatedAt:     now,
		}
		if err := s.repo.WithTx(tx).Insert(ctx, &barcode); err != nil {
			return err
		}
		if err := s.emit(ctx, tx, enums.EventBarcodeIssued, barcode, now); err != nil {
			return err
		}
		result = &IssueResult{Barcode: ToDTO(barcode), RemainingBalance: entry.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel moves an active barcode to cancelled and refunds its points. An
// overdue barcode is expired first and then reported as not cancellable.
func (s *service) Cancel(ctx context.Context, barcodeID, userID uuid.UUID) (*CancelResult, error) {
	if barcodeID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode id and user id are required")
	}

	var (
		result   *CancelResult
		stateErr error
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		barcode, err := repo.FindByID(ctx, barcodeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load barcode")
		}
		if barcode == nil || barcode.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "barcode not found")
		}

		now := s.now()
		if barcode.IsOverdue(now) {
			if _, err := s.expireTx(ctx, tx, []models.RedemptionBarcode{*barcode}, now); err != nil {
				return err
			}
			stateErr = invalidState(enums.BarcodeStatusExpired, "cancel")
			return nil
		}
		if barcode.Status != enums.BarcodeStatusActive {
			return invalidState(barcode.Status, "cancel")
		}

		ok, err := repo.Transition(ctx, barcode.ID, enums.BarcodeStatusCancelled, now, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel barcode")
		}
		if !ok {
			return s.classifyMiss(ctx, repo, barcode.ID, "cancel")
		}

		entry, err := s.ledger.RefundTx(ctx, tx, userID, barcode.PointsValue, barcode.ID)
		if err != nil {
			return err
		}

		barcode.Status = enums.BarcodeStatusCancelled
		barcode.CancelledAt = &now
		if err := s.emit(ctx, tx, enums.EventBarcodeCancelled, *barcode, now); err != nil {
			return err
		}
		result = &CancelResult{Barcode: ToDTO(*barcode), Balance: entry.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if stateErr != nil {
		return nil, stateErr
	}

	s.metrics.Transitioned(string(enums.BarcodeStatusCancelled), 1)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":    userID.String(),
		"barcode_id": barcodeID.String(),
		"points":     result.Barcode.PointsValue,
	}), "barcode.cancelled")
	return result, nil
}

// RedeemAtCheckout consumes a barcode exactly once. The status check and the
// write are a single conditional update, so concurrent attempts on one code
// cannot both succeed.
func (s *service) RedeemAtCheckout(ctx context.Context, input RedeemInput) (*BarcodeDTO, error) {
	code := NormalizeCode(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode code is required")
	}
	if input.OrderID != nil && strings.TrimSpace(*input.OrderID) == "" {
		input.OrderID = nil
	}

	var (
		dto      *BarcodeDTO
		owner    uuid.UUID
		stateErr error
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		barcode, err := repo.FindByCode(ctx, code)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load barcode")
		}
		if barcode == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "barcode not found")
		}

		now := s.now()
		ok, err := repo.Transition(ctx, barcode.ID, enums.BarcodeStatusUsed, now, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem barcode")
		}
		if !ok {
			current, err := repo.FindByID(ctx, barcode.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload barcode")
			}
			if current != nil && current.IsOverdue(now) {
				if _, err := s.expireTx(ctx, tx, []models.RedemptionBarcode{*current}, now); err != nil {
					return err
				}
				stateErr = invalidState(enums.BarcodeStatusExpired, "redeem")
				return nil
			}
			if current == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "barcode not found")
			}
			return invalidState(current.Status, "redeem")
		}

		owner = barcode.UserID
		barcode.Status = enums.BarcodeStatusUsed
		barcode.UsedAt = &now
		if input.OrderID != nil {
			barcode.OrderID = input.OrderID
		}
		if err := s.emit(ctx, tx, enums.EventBarcodeUsed, *barcode, now); err != nil {
			return err
		}
		out := ToDTO(*barcode)
		dto = &out
		return nil
	})
	if err != nil {
		return nil, err
	}
	if stateErr != nil {
		return nil, stateErr
	}

	s.metrics.Transitioned(string(enums.BarcodeStatusUsed), 1)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":    owner.String(),
		"barcode_id": dto.ID.String(),
	}), "barcode.redeemed")
	return dto, nil
}

// ListMine expires the user's overdue barcodes before listing them.
func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]BarcodeDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if _, err := s.expireOverdue(ctx, &userID, s.now(), 0); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list barcodes")
	}
	out := make([]BarcodeDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToDTO(row))
	}
	return out, nil
}

// Validate checks that code is an active barcode owned by userID without
// consuming it. Cart quotes use it to preview the discount.
func (s *service) Validate(ctx context.Context, userID uuid.UUID, code string) (*models.RedemptionBarcode, error) {
	code = NormalizeCode(code)
	if userID == uuid.Nil || code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and barcode code are required")
	}
	barcode, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load barcode")
	}
	if barcode == nil || barcode.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "barcode not found")
	}

	now := s.now()
	if barcode.IsOverdue(now) {
		if _, err := s.expireOverdue(ctx, &userID, now, 0); err != nil {
			return nil, err
		}
		return nil, invalidState(enums.BarcodeStatusExpired, "apply")
	}
	if barcode.Status != enums.BarcodeStatusActive {
		return nil, invalidState(barcode.Status, "apply")
	}
	return barcode, nil
}

// ExpireDue sweeps every overdue active barcode in batches. Expired points
// are not refunded.
func (s *service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC().Truncate(time.Microsecond)
	total := 0
	for {
		n, err := s.expireOverdue(ctx, nil, now, expireBatchSize)
		total += n
		if err != nil {
			return total, err
		}
		if n < expireBatchSize {
			return total, nil
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

func (s *service) expireOverdue(ctx context.Context, userID *uuid.UUID, now time.Time, limit int) (int, error) {
	rows, err := s.repo.ListOverdue(ctx, userID, now, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list overdue barcodes")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	var expired int
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := s.expireTx(ctx, tx, rows, now)
		expired = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return expired, nil
}

// expireTx transitions each row conditionally; rows another writer already
// moved are skipped.
func (s *service) expireTx(ctx context.Context, tx *gorm.DB, rows []models.RedemptionBarcode, now time.Time) (int, error) {
	repo := s.repo.WithTx(tx)
	expired := 0
	for _, row := range rows {
		ok, err := repo.Transition(ctx, row.ID, enums.BarcodeStatusExpired, now, nil)
		if err != nil {
			return expired, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire barcode")
		}
		if !ok {
			continue
		}
		row.Status = enums.BarcodeStatusExpired
		row.ExpiredAt = &now
		if err := s.emit(ctx, tx, enums.EventBarcodeExpired, row, now); err != nil {
			return expired, err
		}
		expired++
	}
	if expired > 0 {
		s.metrics.Transitioned(string(enums.BarcodeStatusExpired), expired)
		s.logg.Info(s.logg.WithField(ctx, "count", expired), "barcode.expired")
	}
	return expired, nil
}

func (s *service) classifyMiss(ctx context.Context, repo Repository, id uuid.UUID, action string) error {
	current, err := repo.FindByID(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload barcode")
	}
	if current == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "barcode not found")
	}
	return invalidState(current.Status, action)
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, b models.RedemptionBarcode, now time.Time) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateBarcode,
		AggregateID:   b.ID,
		Actor:         &outbox.ActorRef{UserID: b.UserID},
		OccurredAt:    now,
		Data: payloads.BarcodeLifecycleEvent{
			BarcodeID:     b.ID,
			UserID:        b.UserID,
			Code:          b.Code,
			Status:        string(b.Status),
			PointsValue:   b.PointsValue,
			MonetaryValue: b.MonetaryValue.StringFixed(2),
			ExpiresAt:     b.ExpiresAt,
			OrderID:       b.OrderID,
			OccurredAt:    now,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit barcode event")
	}
	return nil
}

func invalidState(status enums.BarcodeStatus, action string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("cannot %s a barcode that is %s", action, status)).
		WithDetails(map[string]any{"status": string(status)})
}

func isUnique(err error, constraint, column string) bool {
	return db.IsUniqueViolation(err, constraint) || db.IsUniqueViolation(err, column)
}
