package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func grantRequestHandlers() repository.ModelHandlers[*grantRequestRecord] {
	return repository.ModelHandlers[*grantRequestRecord]{
		NewRecord: func() *grantRequestRecord {
			return &grantRequestRecord{}
		},
		GetID: func(record *grantRequestRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *grantRequestRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *grantRequestRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func autoApproveCounterHandlers() repository.ModelHandlers[*autoApproveCounterRecord] {
	return repository.ModelHandlers[*autoApproveCounterRecord]{
		NewRecord: func() *autoApproveCounterRecord {
			return &autoApproveCounterRecord{}
		},
		GetID: func(record *autoApproveCounterRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *autoApproveCounterRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *autoApproveCounterRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
