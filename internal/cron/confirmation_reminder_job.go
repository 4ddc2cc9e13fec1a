package cron

import (
	"context"
	"fmt"

	"github.com/vaiven-app/vaiven-backend/pkg/logger"
)

type reminderSweeper interface {
	SweepReminders(ctx context.Context) (int, error)
}

// ConfirmationReminderJobParams configure the reminder sweep job.
type ConfirmationReminderJobParams struct {
	Logger        *logger.Logger
	Confirmations reminderSweeper
}

// NewConfirmationReminderJob nudges store owners holding confirmation tokens
// that are approaching expiry. Each record is reminded at most once.
func NewConfirmationReminderJob(params ConfirmationReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Confirmations == nil {
		return nil, fmt.Errorf("confirmation service required")
	}
	return &confirmationReminderJob{
		logg:          params.Logger,
		confirmations: params.Confirmations,
	}, nil
}

type confirmationReminderJob struct {
	logg          *logger.Logger
	confirmations reminderSweeper
}

func (j *confirmationReminderJob) Name() string { return "confirmation-reminder" }

func (j *confirmationReminderJob) Run(ctx context.Context) error {
	reminded, err := j.confirmations.SweepReminders(ctx)
	if err != nil {
		return fmt.Errorf("reminder sweep: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "reminders_sent", reminded)
	j.logg.Info(logCtx, "confirmation reminder sweep complete")
	return nil
}
