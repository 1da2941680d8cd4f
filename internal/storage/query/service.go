// Package query runs analytics over exported snapshots.
//
// Exports are plain Parquet files; an in-memory DuckDB database reads them
// directly with read_parquet, so nothing is loaded ahead of a query.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/xtxerr/wifitracker/internal/logging"
	"github.com/xtxerr/wifitracker/internal/storage/config"
	"github.com/xtxerr/wifitracker/internal/storage/parquet"
	"github.com/xtxerr/wifitracker/internal/validation"
)

// Service provides query capabilities over exported snapshots.
type Service struct {
	mu sync.Mutex

	config *config.Config
	db     *sql.DB
	dir    string
	log    *slog.Logger

	// Statistics
	stats ServiceStats
}

// ServiceStats holds service statistics.
type ServiceStats struct {
	QueriesExecuted int64
	RowsReturned    int64
	Errors          int64
}

// SSIDCount is the popularity of one network name.
type SSIDCount struct {
	SSID    string
	Probes  int64
	Devices int64
}

// HourCount is the number of probes a device sent in one hour.
type HourCount struct {
	Hour   time.Time
	Probes int64
}

// New creates a new query service reading exports from cfg.ExportDir().
func New(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	// Open in-memory DuckDB database
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	if cfg.Query.MemoryLimit != "" {
		_, err = db.Exec(fmt.Sprintf("SET memory_limit='%s'", cfg.Query.MemoryLimit))
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("set memory limit: %w", err)
		}
	}

	return &Service{
		config: cfg,
		db:     db,
		dir:    cfg.ExportDir(),
		log:    logging.OrComponent(logger, "query"),
	}, nil
}

// Close closes the query service.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SSIDPopularity returns the most probed-for network names, busiest first.
// A limit of zero or less returns every SSID.
func (s *Service) SSIDPopularity(ctx context.Context, limit int) ([]SSIDCount, error) {
	path, err := s.exportFile(parquet.ProbesFile)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT target_ssid, count(*) AS probes, count(DISTINCT source_mac) AS devices
		FROM read_parquet($1)
		WHERE target_ssid IS NOT NULL
		GROUP BY target_ssid
		ORDER BY probes DESC, target_ssid
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, path)
	if err != nil {
		s.failed()
		return nil, fmt.Errorf("ssid popularity: %w", err)
	}
	defer rows.Close()

	var results []SSIDCount
	for rows.Next() {
		var c SSIDCount
		if err := rows.Scan(&c.SSID, &c.Probes, &c.Devices); err != nil {
			s.failed()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		s.failed()
		return nil, err
	}

	s.done(len(results))
	return results, nil
}

// DeviceActivity returns the probes sent by one device per hour, oldest
// first. Probes without a capture time are not counted.
func (s *Service) DeviceActivity(ctx context.Context, mac string) ([]HourCount, error) {
	if err := validation.ValidateMAC(mac); err != nil {
		return nil, err
	}

	path, err := s.exportFile(parquet.ProbesFile)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT (capture_us // 3600000000) * 3600 AS hour, count(*) AS probes
		FROM read_parquet($1)
		WHERE source_mac = $2 AND capture_us IS NOT NULL
		GROUP BY hour
		ORDER BY hour
	`

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, path, mac)
	if err != nil {
		s.failed()
		return nil, fmt.Errorf("device activity: %w", err)
	}
	defer rows.Close()

	var results []HourCount
	for rows.Next() {
		var hour int64
		var c HourCount
		if err := rows.Scan(&hour, &c.Probes); err != nil {
			s.failed()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		c.Hour = time.Unix(hour, 0)
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		s.failed()
		return nil, err
	}

	s.done(len(results))
	return results, nil
}

// ExecuteSQL executes a raw SQL query using DuckDB.
// Rows beyond query.max_rows are dropped.
func (s *Service) ExecuteSQL(ctx context.Context, query string) ([]map[string]interface{}, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.failed()
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		s.failed()
		return nil, err
	}

	var results []map[string]interface{}

	for rows.Next() {
		if len(results) >= s.config.Query.MaxRows {
			s.log.Warn("result truncated", "max_rows", s.config.Query.MaxRows)
			break
		}

		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			s.failed()
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		s.failed()
		return nil, err
	}

	s.done(len(results))
	return results, nil
}

// ExportPath returns the absolute path of an export file.
func (s *Service) ExportPath(name string) string {
	return filepath.Join(s.dir, name)
}

// Stats returns query statistics.
func (s *Service) Stats() ServiceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Service) exportFile(name string) (string, error) {
	path := s.ExportPath(name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("export %s: %w", name, err)
	}
	return path, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Query.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.Query.Timeout)
}

func (s *Service) done(rows int) {
	s.mu.Lock()
	s.stats.QueriesExecuted++
	s.stats.RowsReturned += int64(rows)
	s.mu.Unlock()
}

func (s *Service) failed() {
	s.mu.Lock()
	s.stats.Errors++
	s.mu.Unlock()
}
