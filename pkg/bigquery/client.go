package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"go.uber.org/multierr"
	"google.golang.org/api/googleapi"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/gcp"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

const verifyTimeout = 10 * time.Second

var (
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// Client streams analytics rows into a single dataset. Tables are created
// out of band; the client only checks they exist.
type Client struct {
	bq           *bigquery.Client
	dataset      *bigquery.Dataset
	bookingTable string
}

// NewClient connects to BigQuery and fails fast when the dataset or the
// booking events table is missing.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID, err := gcp.ProjectID(gcpCfg)
	if err != nil {
		return nil, err
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	tables := configuredTables(cfg)
	if len(tables) == 0 {
		return nil, errTableNameRequired
	}

	bq, err := bigquery.NewClient(ctx, projectID, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{bq: bq, dataset: bq.Dataset(datasetID), bookingTable: tables[0]}
	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project": projectID,
			"dataset": datasetID,
			"tables":  tables,
		}), "bigquery.ready")
	}
	return c, nil
}

func configuredTables(cfg config.BigQueryConfig) []string {
	if name := strings.TrimSpace(cfg.BookingEventsTable); name != "" {
		return []string{name}
	}
	return nil
}

// BookingEventsTable names the table booking lifecycle rows go to.
func (c *Client) BookingEventsTable() string {
	if c == nil {
		return ""
	}
	return c.bookingTable
}

// Ping checks the dataset and every configured table, reporting all that
// are missing or unreadable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return describeMetadataErr("dataset", c.dataset.DatasetID, err)
	}
	var errs error
	for _, name := range []string{c.bookingTable} {
		if _, err := c.dataset.Table(name).Metadata(ctx); err != nil {
			errs = multierr.Append(errs, describeMetadataErr("table", name, err))
		}
	}
	return errs
}

func describeMetadataErr(kind, name string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("reading %s %q: %w", kind, name, err)
}

// InsertRows streams rows into table. Partial failures come back as a
// wrapped bigquery.PutMultiError.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.bq == nil {
		return errClientNotInitialized
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errTableNameRequired
	}
	if len(rows) == 0 {
		return nil
	}

	err := c.dataset.Table(table).Inserter().Put(ctx, rows)
	var partial bigquery.PutMultiError
	if errors.As(err, &partial) {
		return fmt.Errorf("%d of %d rows rejected by %s: %w", len(partial), len(rows), table, err)
	}
	return err
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
