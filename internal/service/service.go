package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sms-core-api/internal/models"
	appErrors "github.com/noah-isme/sms-core-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// txRunner runs fn inside one database transaction carried by ctx.
type txRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// lookupError maps a missing row to NotFound and anything else to Internal.
func lookupError(err error, notFound, failure string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return internalError(err, failure)
}

func validationError(err error, message string) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		message = fmt.Sprintf("%s: %s failed %s validation", message, fe.Field(), fe.Tag())
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func businessError(message string) error {
	return appErrors.Clone(appErrors.ErrBusinessLogic, message)
}

func notFoundError(message string) error {
	return appErrors.Clone(appErrors.ErrNotFound, message)
}

func duplicateError(message string) error {
	return appErrors.Clone(appErrors.ErrDuplicate, message)
}

// dateOnly truncates t to midnight UTC of its calendar day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseDate(raw, field string) (time.Time, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("%s must be formatted as YYYY-MM-DD", field))
	}
	return t, nil
}

func parseOptionalDate(raw, field string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(raw, field)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// auditEntry builds an audit record whose changes are the keys differing between snapshots.
func auditEntry(actor, action, resource, resourceID string, before, after map[string]interface{}) (*models.AuditLog, error) {
	entry := &models.AuditLog{
		UserID:     optionalString(actor),
		Action:     action,
		Resource:   resource,
		ResourceID: optionalString(resourceID),
	}
	var err error
	if before != nil {
		if entry.OldValues, err = json.Marshal(before); err != nil {
			return nil, err
		}
	}
	if entry.NewValues, err = json.Marshal(after); err != nil {
		return nil, err
	}
	if entry.Changes, err = json.Marshal(models.DiffSnapshots(before, after)); err != nil {
		return nil, err
	}
	return entry, nil
}

// isolate runs fn and converts a panic into an error so one bulk item cannot abort its siblings.
func isolate(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// bulkReason renders a per-item failure. Domain errors keep their message; anything
// else collapses to fallback and is reported as unexpected so the caller logs it.
func bulkReason(err error, fallback string) (reason string, expected bool) {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Code != appErrors.ErrInternal.Code {
		return appErr.Message, true
	}
	return fallback, false
}

// outcome classifies an operation result for metrics.
func outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Code != appErrors.ErrInternal.Code {
		return OutcomeRejected
	}
	return OutcomeError
}

func newPagination(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
