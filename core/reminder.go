package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

const reminderJobID = "access.pending.reminder"

// ReminderRunner re-notifies admins about requests that have sat PENDING
// longer than the configured age. An external scheduler owns the cadence;
// one Run call performs one sweep. When an enqueuer is present the
// notifications are handed to the job queue instead of being sent inline,
// so retry policy stays with the queue.
type ReminderRunner struct {
	Registry RequestRegistry
	Notifier Notifier
	Enqueuer JobEnqueuer
	Config   Config
	Logger   Logger

	nowFunc func() time.Time
}

func NewReminderRunner(registry RequestRegistry, notifier Notifier, cfg Config) *ReminderRunner {
	return &ReminderRunner{
		Registry: registry,
		Notifier: notifier,
		Config:   cfg,
		Logger:   glog.Nop(),
		nowFunc:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *ReminderRunner) now() time.Time {
	if r == nil || r.nowFunc == nil {
		return time.Now().UTC()
	}
	return r.nowFunc()
}

// Run sweeps pending requests once and returns how many reminders went out.
func (r *ReminderRunner) Run(ctx context.Context) (int, error) {
	if r == nil || r.Registry == nil {
		return 0, internalError("core: reminder runner is not configured")
	}
	age := r.Config.PendingReminderAge
	if age <= 0 {
		return 0, nil
	}

	pending, err := r.Registry.ListPending(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := r.now().Add(-age)
	sent := 0
	for _, record := range pending {
		if record.CreatedAt.After(cutoff) {
			continue
		}
		text := fmt.Sprintf(
			"Reminder: request `%s` from `%s` for `%s` is still waiting for approval. To approve, enter: **yes %s**",
			record.ID, record.Requester.Nick, record.Resource.Name, record.ID,
		)
		if err := r.deliver(ctx, record, text); err != nil {
			if r.Logger != nil {
				r.Logger.Error("pending reminder delivery failed",
					"request_id", record.ID, "error", err.Error())
			}
			continue
		}
		sent++
	}
	return sent, nil
}

func (r *ReminderRunner) deliver(ctx context.Context, record GrantRequest, text string) error {
	if r.Enqueuer != nil {
		return r.Enqueuer.Enqueue(ctx, &JobExecutionMessage{
			JobID: reminderJobID,
			Parameters: map[string]any{
				"request_id": record.ID,
				"channel":    r.Config.AdminsChannel,
				"admin_ids":  append([]string(nil), r.Config.AdminIDs...),
				"text":       text,
			},
			IdempotencyKey: reminderIdempotencyKey(record, r.now()),
		})
	}
	if r.Notifier == nil {
		return internalError("core: reminder runner has no notifier or enqueuer")
	}
	return r.Notifier.SendToAdmins(ctx, r.Config.AdminsChannel, r.Config.AdminIDs, text)
}

// reminderIdempotencyKey dedupes repeat sweeps within the same reminder
// window so a fast scheduler does not double-nag.
func reminderIdempotencyKey(record GrantRequest, now time.Time) string {
	window := int64(0)
	if age := now.Sub(record.CreatedAt); age > 0 {
		window = int64(age / (30 * time.Minute))
	}
	return strings.Join([]string{reminderJobID, record.ID, fmt.Sprint(window)}, "::")
}
