package cron

import (
	"context"
	"fmt"

	"github.com/vaiven-app/vaiven-backend/pkg/logger"
)

type expirySweeper interface {
	SweepExpiry(ctx context.Context) (int, error)
}

// ConfirmationExpiryJobParams configure the expiry sweep job.
type ConfirmationExpiryJobParams struct {
	Logger        *logger.Logger
	Confirmations expirySweeper
}

// NewConfirmationExpiryJob retires issued confirmations past their TTL.
// Reads already enforce expiry lazily; this keeps the table and listeners
// in sync without depending on anyone reading the token.
func NewConfirmationExpiryJob(params ConfirmationExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Confirmations == nil {
		return nil, fmt.Errorf("confirmation service required")
	}
	return &confirmationExpiryJob{
		logg:          params.Logger,
		confirmations: params.Confirmations,
	}, nil
}

type confirmationExpiryJob struct {
	logg          *logger.Logger
	confirmations expirySweeper
}

func (j *confirmationExpiryJob) Name() string { return "confirmation-expiry" }

func (j *confirmationExpiryJob) Run(ctx context.Context) error {
	expired, err := j.confirmations.SweepExpiry(ctx)
	if err != nil {
		return fmt.Errorf("expiry sweep: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "confirmations_expired", expired)
	j.logg.Info(logCtx, "confirmation expiry sweep complete")
	return nil
}
