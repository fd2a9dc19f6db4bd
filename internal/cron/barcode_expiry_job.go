package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/freshbasket/storefront-backend/pkg/logger"
)

type barcodeExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

type BarcodeExpiryJobParams struct {
	Logger   *logger.Logger
	Barcodes barcodeExpirer
}

func NewBarcodeExpiryJob(params BarcodeExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Barcodes == nil {
		return nil, fmt.Errorf("barcode service required")
	}
	return &barcodeExpiryJob{
		logg:     params.Logger,
		barcodes: params.Barcodes,
		now:      time.Now,
	}, nil
}

// barcodeExpiryJob moves overdue active barcodes to expired. Reads expire
// lazily as well, so this only catches barcodes nobody has looked at.
type barcodeExpiryJob struct {
	logg     *logger.Logger
	barcodes barcodeExpirer
	now      func() time.Time
}

func (j *barcodeExpiryJob) Name() string { return "barcode-expiry" }

func (j *barcodeExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	expired, err := j.barcodes.ExpireDue(ctx, now)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"as_of":   now,
		"expired": expired,
	})
	if err != nil {
		return fmt.Errorf("expire barcodes: %w", err)
	}
	j.logg.Info(logCtx, "barcode expiry sweep complete")
	return nil
}
