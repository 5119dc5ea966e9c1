package writer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/occasionbuddy/occasionbuddy-backend/internal/analytics/types"
	pkgbigquery "github.com/occasionbuddy/occasionbuddy-backend/pkg/bigquery"
)

type Config struct {
	BookingTable string
	// BatchSize rows are buffered before an insert; 1 writes every row immediately.
	BatchSize   int
	RetryPolicy RetryPolicy
}

// RetryPolicy bounds retries of transient insert failures. Zero fields take
// the defaults: 3 attempts, 250ms doubling up to 2s.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 250 * time.Millisecond
	}
	if p.MaximumBackoff <= 0 {
		p.MaximumBackoff = 2 * time.Second
	}
	p.MaximumBackoff = max(p.MaximumBackoff, p.InitialBackoff)
	return p
}

func (p RetryPolicy) backoff() retry.Backoff {
	b := retry.NewExponential(p.InitialBackoff)
	b = retry.WithCappedDuration(p.MaximumBackoff, b)
	return retry.WithMaxRetries(uint64(p.MaxAttempts-1), b)
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryWriter streams booking rows into one table.
type BigQueryWriter struct {
	client    tableInserter
	table     string
	batchSize int
	policy    RetryPolicy

	mu     sync.Mutex
	buffer []types.BookingEventRow
}

func New(client *pkgbigquery.Client, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	return newWriter(client, cfg)
}

func newWriter(client tableInserter, cfg Config) (*BigQueryWriter, error) {
	table := strings.TrimSpace(cfg.BookingTable)
	if table == "" {
		return nil, errors.New("booking table is required")
	}
	return &BigQueryWriter{
		client:    client,
		table:     table,
		batchSize: max(cfg.BatchSize, 1),
		policy:    cfg.RetryPolicy.withDefaults(),
	}, nil
}

// InsertBooking buffers row and writes the buffer once it holds a full batch.
// On failure the rows stay buffered for the next attempt.
func (w *BigQueryWriter) InsertBooking(ctx context.Context, row types.BookingEventRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buffer = append(w.buffer, row)
	if len(w.buffer) < w.batchSize {
		return nil
	}
	return w.flushLocked(ctx)
}

// Flush writes whatever is buffered.
func (w *BigQueryWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked(ctx)
}

func (w *BigQueryWriter) flushLocked(ctx context.Context) error {
	if len(w.buffer) == 0 {
		return nil
	}
	rows := make([]any, 0, len(w.buffer))
	for _, row := range w.buffer {
		rows = append(rows, &row)
	}

	err := retry.Do(ctx, w.policy.backoff(), func(ctx context.Context) error {
		err := w.client.InsertRows(ctx, w.table, rows)
		if IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("insert %d rows into %s: %w", len(rows), w.table, err)
	}
	w.buffer = w.buffer[:0]
	return nil
}

var (
	retryableHTTP = []int{http.StatusTooManyRequests, http.StatusRequestTimeout}
	retryableGRPC = []codes.Code{codes.DeadlineExceeded, codes.ResourceExhausted, codes.Unavailable, codes.Aborted}
)

// IsRetryable reports whether an insert failure is worth retrying: 429, 408
// and 5xx HTTP errors plus a few transient gRPC codes. Aggregated errors are
// retryable only when every member is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		return len(multi) > 0 && allRetryable(multi)
	}
	var rowErrs cbigquery.PutMultiError
	if errors.As(err, &rowErrs) {
		if len(rowErrs) == 0 {
			return false
		}
		for _, rowErr := range rowErrs {
			if !IsRetryable(rowErr.Errors) {
				return false
			}
		}
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500 || slices.Contains(retryableHTTP, apiErr.Code)
	}
	if st, ok := status.FromError(err); ok {
		return slices.Contains(retryableGRPC, st.Code())
	}
	return false
}

func allRetryable(errs []error) bool {
	for _, err := range errs {
		if !IsRetryable(err) {
			return false
		}
	}
	return true
}
