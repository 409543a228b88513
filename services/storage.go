package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	// DefaultStorageTimeout bounds every storage call when the caller did not configure one
	DefaultStorageTimeout = 5 * time.Second
	// DefaultPageSize is the number of rows per page in paginated listings
	DefaultPageSize = 10
)

// Options configures the services built on the catalog store
type Options struct {
	Timeout  time.Duration
	PageSize int
}

// store is embedded by the services; it owns the gorm handle, the per-call
// timeout and the listing page size
type store struct {
	db       *gorm.DB
	timeout  time.Duration
	pageSize int
}

func newStore(db *gorm.DB, opts Options) store {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultStorageTimeout
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return store{db: db, timeout: opts.Timeout, pageSize: opts.PageSize}
}

// withTimeout derives the context used for a single storage operation
func (s store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.timeout)
}

// read runs fn against a context-bound session
func (s store) read(ctx context.Context, op string, fn func(db *gorm.DB) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return storageError(op, fn(s.db.WithContext(ctx)))
}

// transaction runs fn in a single storage transaction.
// Domain errors returned by fn roll back and pass through unchanged.
func (s store) transaction(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return storageError(op, s.db.WithContext(ctx).Transaction(fn))
}

// storageError leaves domain errors alone and turns anything else into a
// StorageUnavailableError
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr Error
	if errors.As(err, &domainErr) {
		return err
	}
	return &StorageUnavailableError{Op: op, Err: err}
}

// isUniqueViolation reports whether err is a unique constraint violation.
// gorm translates it when TranslateError is on; the message check covers
// drivers and configurations that do not.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint")
}

// isForeignKeyViolation reports whether err is a foreign key violation
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// pageCount returns how many pages of size hold total rows
func pageCount(total int64, size int) int {
	if size <= 0 || total == 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// normalizePage clamps page numbers to start at 1
func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
