package cron

import (
	"context"
	"fmt"

	"github.com/vaiven-app/vaiven-backend/pkg/logger"
)

type issuanceSweeper interface {
	SweepIssuance(ctx context.Context) (int, error)
}

// ConfirmationIssuanceJobParams configure the issuance recovery job.
type ConfirmationIssuanceJobParams struct {
	Logger        *logger.Logger
	Confirmations issuanceSweeper
}

// NewConfirmationIssuanceJob retries confirmation issuance for delivered
// store purchases that never received a token.
func NewConfirmationIssuanceJob(params ConfirmationIssuanceJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Confirmations == nil {
		return nil, fmt.Errorf("confirmation service required")
	}
	return &confirmationIssuanceJob{
		logg:          params.Logger,
		confirmations: params.Confirmations,
	}, nil
}

type confirmationIssuanceJob struct {
	logg          *logger.Logger
	confirmations issuanceSweeper
}

func (j *confirmationIssuanceJob) Name() string { return "confirmation-issuance" }

func (j *confirmationIssuanceJob) Run(ctx context.Context) error {
	issued, err := j.confirmations.SweepIssuance(ctx)
	if err != nil {
		return fmt.Errorf("issuance sweep: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "tokens_issued", issued)
	j.logg.Info(logCtx, "confirmation issuance sweep complete")
	return nil
}
