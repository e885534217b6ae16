package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-access/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const maxIDGenerationAttempts = 16

// RequestStore persists grant requests and auto-approve counters. Status
// transitions run inside a transaction with a conditional update so that
// concurrent approvals of the same id resolve to exactly one winner.
type RequestStore struct {
	db       *bun.DB
	requests repository.Repository[*grantRequestRecord]
	counters repository.Repository[*autoApproveCounterRecord]

	nowFunc func() time.Time
}

func NewRequestStore(db *bun.DB) (*RequestStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	requests := repository.NewRepository[*grantRequestRecord](db, grantRequestHandlers())
	if validator, ok := requests.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid grant request repository wiring: %w", err)
		}
	}
	counters := repository.NewRepository[*autoApproveCounterRecord](db, autoApproveCounterHandlers())
	if validator, ok := counters.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid counter repository wiring: %w", err)
		}
	}
	return &RequestStore{
		db:       db,
		requests: requests,
		counters: counters,
		nowFunc:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *RequestStore) now() time.Time {
	if s == nil || s.nowFunc == nil {
		return time.Now().UTC()
	}
	return s.nowFunc()
}

func (s *RequestStore) GenerateRequestID(ctx context.Context) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("sqlstore: request store is not configured")
	}
	for attempt := 0; attempt < maxIDGenerationAttempts; attempt++ {
		id, err := core.NewRequestID()
		if err != nil {
			return "", err
		}
		exists, err := s.db.NewSelect().
			Model((*grantRequestRecord)(nil)).
			Where("?TableAlias.id = ?", id).
			Exists(ctx)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("sqlstore: request id space exhausted")
}

func (s *RequestStore) Record(ctx context.Context, in core.RecordRequestInput) (core.GrantRequest, error) {
	if s == nil || s.requests == nil {
		return core.GrantRequest{}, fmt.Errorf("sqlstore: request store is not configured")
	}
	if err := in.Validate(); err != nil {
		return core.GrantRequest{}, err
	}

	record := newGrantRequestRecord(in, s.now())
	created, err := s.requests.Create(ctx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return core.GrantRequest{}, core.InvalidStateError(
				fmt.Sprintf("sqlstore: request id already recorded: %s", record.ID),
			)
		}
		return core.GrantRequest{}, err
	}
	return created.toDomain(), nil
}

func (s *RequestStore) Get(ctx context.Context, id string) (core.GrantRequest, error) {
	if s == nil || s.db == nil {
		return core.GrantRequest{}, fmt.Errorf("sqlstore: request store is not configured")
	}
	id = strings.TrimSpace(id)
	record := &grantRequestRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.GrantRequest{}, core.NotFoundError(
				fmt.Sprintf("sqlstore: grant request not found: %s", id),
			)
		}
		return core.GrantRequest{}, err
	}
	return record.toDomain(), nil
}

func (s *RequestStore) ListPending(ctx context.Context) ([]core.GrantRequest, error) {
	if s == nil || s.requests == nil {
		return nil, fmt.Errorf("sqlstore: request store is not configured")
	}
	records, _, err := s.requests.List(ctx,
		repository.SelectBy("status", "=", string(core.StatusPending)),
		repository.OrderBy("created_at ASC"),
		repository.OrderBy("id ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.GrantRequest, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *RequestStore) Approve(
	ctx context.Context,
	id string,
	granter string,
	autoGranted bool,
) (core.GrantRequest, bool, error) {
	if s == nil || s.db == nil {
		return core.GrantRequest{}, false, fmt.Errorf("sqlstore: request store is not configured")
	}
	id = strings.TrimSpace(id)

	var out core.GrantRequest
	var already bool
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findRequestTx(ctx, tx, id)
		if err != nil {
			return err
		}
		switch core.RequestStatus(record.Status) {
		case core.StatusApproved:
			out = record.toDomain()
			already = true
			return nil
		case core.StatusDenied, core.StatusFailed:
			return core.InvalidStateError(
				fmt.Sprintf("sqlstore: grant request %s already resolved as %s", id, record.Status),
			)
		}

		now := s.now()
		result, err := tx.NewUpdate().
			Model((*grantRequestRecord)(nil)).
			Set("status = ?", string(core.StatusApproved)).
			Set("resolved_by = ?", strings.TrimSpace(granter)).
			Set("auto_granted = ?", autoGranted).
			Set("updated_at = ?", now).
			Where("id = ?", id).
			Where("status = ?", string(core.StatusPending)).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			// Lost the race: another transition landed first.
			record, err = findRequestTx(ctx, tx, id)
			if err != nil {
				return err
			}
			if core.RequestStatus(record.Status) == core.StatusApproved {
				out = record.toDomain()
				already = true
				return nil
			}
			return core.InvalidStateError(
				fmt.Sprintf("sqlstore: grant request %s already resolved as %s", id, record.Status),
			)
		}

		record.Status = string(core.StatusApproved)
		record.ResolvedBy = strings.TrimSpace(granter)
		record.AutoGranted = autoGranted
		record.UpdatedAt = now
		out = record.toDomain()
		return nil
	})
	if err != nil {
		return core.GrantRequest{}, false, err
	}
	return out, already, nil
}

func (s *RequestStore) Deny(ctx context.Context, id string, granter string) (core.GrantRequest, error) {
	if s == nil || s.db == nil {
		return core.GrantRequest{}, fmt.Errorf("sqlstore: request store is not configured")
	}
	id = strings.TrimSpace(id)

	var out core.GrantRequest
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findRequestTx(ctx, tx, id)
		if err != nil {
			return err
		}
		switch core.RequestStatus(record.Status) {
		case core.StatusDenied:
			out = record.toDomain()
			return nil
		case core.StatusApproved, core.StatusFailed:
			return core.InvalidStateError(
				fmt.Sprintf("sqlstore: grant request %s already resolved as %s", id, record.Status),
			)
		}

		now := s.now()
		result, err := tx.NewUpdate().
			Model((*grantRequestRecord)(nil)).
			Set("status = ?", string(core.StatusDenied)).
			Set("resolved_by = ?", strings.TrimSpace(granter)).
			Set("updated_at = ?", now).
			Where("id = ?", id).
			Where("status = ?", string(core.StatusPending)).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			record, err = findRequestTx(ctx, tx, id)
			if err != nil {
				return err
			}
			if core.RequestStatus(record.Status) == core.StatusDenied {
				out = record.toDomain()
				return nil
			}
			return core.InvalidStateError(
				fmt.Sprintf("sqlstore: grant request %s already resolved as %s", id, record.Status),
			)
		}

		record.Status = string(core.StatusDenied)
		record.ResolvedBy = strings.TrimSpace(granter)
		record.UpdatedAt = now
		out = record.toDomain()
		return nil
	})
	if err != nil {
		return core.GrantRequest{}, err
	}
	return out, nil
}

func (s *RequestStore) MarkFailed(ctx context.Context, id string, reason string) (core.GrantRequest, error) {
	if s == nil || s.db == nil {
		return core.GrantRequest{}, fmt.Errorf("sqlstore: request store is not configured")
	}
	id = strings.TrimSpace(id)
	reason = strings.TrimSpace(reason)

	var out core.GrantRequest
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findRequestTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if core.RequestStatus(record.Status) != core.StatusApproved {
			return core.InvalidStateError(
				fmt.Sprintf("sqlstore: grant request %s is %s, only approved requests can fail", id, record.Status),
			)
		}

		now := s.now()
		if _, err := tx.NewUpdate().
			Model((*grantRequestRecord)(nil)).
			Set("status = ?", string(core.StatusFailed)).
			Set("fail_reason = ?", reason).
			Set("updated_at = ?", now).
			Where("id = ?", id).
			Where("status = ?", string(core.StatusApproved)).
			Exec(ctx); err != nil {
			return err
		}

		record.Status = string(core.StatusFailed)
		record.FailReason = reason
		record.UpdatedAt = now
		out = record.toDomain()
		return nil
	})
	if err != nil {
		return core.GrantRequest{}, err
	}
	return out, nil
}

func (s *RequestStore) AutoApproveUses(ctx context.Context, requesterID string) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: request store is not configured")
	}
	record := &autoApproveCounterRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.requester_id = ?", strings.TrimSpace(requesterID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return record.Uses, nil
}

func (s *RequestStore) IncrementAutoApproveUses(ctx context.Context, requesterID string) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: request store is not configured")
	}
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return 0, fmt.Errorf("sqlstore: requester id is required")
	}

	var uses int
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := s.now()
		record, err := findCounterTx(ctx, tx, requesterID)
		if err != nil {
			return err
		}
		if record == nil {
			record = &autoApproveCounterRecord{
				ID:          uuid.NewString(),
				RequesterID: requesterID,
				Uses:        1,
				UpdatedAt:   now,
			}
			if _, insertErr := tx.NewInsert().Model(record).Exec(ctx); insertErr != nil {
				if !isUniqueViolation(insertErr) {
					return insertErr
				}
				record, err = findCounterTx(ctx, tx, requesterID)
				if err != nil {
					return err
				}
				if record == nil {
					return insertErr
				}
			} else {
				uses = record.Uses
				return nil
			}
		}

		if _, err := tx.NewUpdate().
			Model((*autoApproveCounterRecord)(nil)).
			Set("uses = uses + 1").
			Set("updated_at = ?", now).
			Where("requester_id = ?", requesterID).
			Exec(ctx); err != nil {
			return err
		}
		record, err = findCounterTx(ctx, tx, requesterID)
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("sqlstore: counter disappeared for requester %s", requesterID)
		}
		uses = record.Uses
		return nil
	})
	if err != nil {
		return 0, err
	}
	return uses, nil
}

func findRequestTx(ctx context.Context, tx bun.Tx, id string) (*grantRequestRecord, error) {
	record := &grantRequestRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NotFoundError(
				fmt.Sprintf("sqlstore: grant request not found: %s", id),
			)
		}
		return nil, err
	}
	return record, nil
}

func findCounterTx(ctx context.Context, tx bun.Tx, requesterID string) (*autoApproveCounterRecord, error) {
	record := &autoApproveCounterRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.requester_id = ?", requesterID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
