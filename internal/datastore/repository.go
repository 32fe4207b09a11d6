// Package datastore reads and writes the pipeline's PostgreSQL tables.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/your-org/chi-traffic-accidents/internal/config"
	"github.com/your-org/chi-traffic-accidents/internal/frame"
)

// Pool is an interface that abstracts the pgxpool.Pool for testability.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TableReader loads whole tables into frames.
type TableReader interface {
	ReadTable(ctx context.Context, table string, limit int) (*frame.Frame, error)
}

// TableWriter replaces whole tables from frames.
type TableWriter interface {
	ReplaceTable(ctx context.Context, table string, f *frame.Frame) (int64, error)
}

// Connect opens a pool for the configured database and checks it answers.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}
	return pool, nil
}

// Repository moves frames in and out of PostgreSQL.
type Repository struct {
	db     Pool
	logger *zap.Logger
}

// NewRepository creates a new Repository.
func NewRepository(db Pool, logger *zap.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// ReplaceTable drops the table, recreates it from the frame's column kinds
// and bulk loads the rows, all in one transaction. Last write wins.
func (r *Repository) ReplaceTable(ctx context.Context, table string, f *frame.Frame) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin replace %s: %w", table, err)
	}

	n, err := replaceIn(ctx, tx, table, f)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			r.logger.Warn("rollback failed", zap.String("table", table), zap.Error(rbErr))
		}
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit replace %s: %w", table, err)
	}
	r.logger.Info("replaced table", zap.String("table", table), zap.Int64("rows", n))
	return n, nil
}

func replaceIn(ctx context.Context, tx pgx.Tx, table string, f *frame.Frame) (int64, error) {
	ident := pgx.Identifier{table}
	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident.Sanitize()); err != nil {
		return 0, fmt.Errorf("drop %s: %w", table, err)
	}
	if _, err := tx.Exec(ctx, CreateTableSQL(table, f)); err != nil {
		return 0, fmt.Errorf("create %s: %w", table, err)
	}
	if f.Len() == 0 {
		return 0, nil
	}
	n, err := tx.CopyFrom(ctx, ident, f.Names(), pgx.CopyFromRows(f.Rows()))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	return n, nil
}

// CreateTableSQL renders the CREATE TABLE statement for a frame.
func CreateTableSQL(table string, f *frame.Frame) string {
	defs := make([]string, 0, f.Width())
	for _, c := range f.Columns() {
		defs = append(defs, pgx.Identifier{c.Name}.Sanitize()+" "+sqlType(c.Kind))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", pgx.Identifier{table}.Sanitize(), strings.Join(defs, ", "))
}

func sqlType(k frame.Kind) string {
	switch k {
	case frame.Int:
		return "BIGINT"
	case frame.Float:
		return "DOUBLE PRECISION"
	case frame.Bool:
		return "BOOLEAN"
	case frame.Time:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// ReadTable loads a table. A limit of zero or less reads every row.
func (r *Repository) ReadTable(ctx context.Context, table string, limit int) (*frame.Frame, error) {
	return r.Query(ctx, "SELECT * FROM "+pgx.Identifier{table}.Sanitize(), limit)
}

// Query runs a SELECT and returns the result as a frame. When limit is
// positive it is appended as a bound LIMIT parameter.
func (r *Repository) Query(ctx context.Context, query string, limit int) (*frame.Frame, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.Query(ctx, query+" LIMIT $1", limit)
	} else {
		rows, err = r.db.Query(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]*frame.Column, len(fields))
	kindSet := make([]bool, len(fields))
	for i, fd := range fields {
		cols[i] = &frame.Column{Name: fd.Name, Kind: frame.Text}
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			v, kind := normalize(v)
			if v != nil && !kindSet[i] {
				cols[i].Kind = kind
				kindSet[i] = true
			}
			cols[i].Values = append(cols[i].Values, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	f, err := frame.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("build frame: %w", err)
	}
	r.logger.Debug("query loaded", zap.Int("rows", f.Len()), zap.Int("columns", f.Width()))
	return f, nil
}

// normalize maps the Go types pgx decodes into the ones frame stores.
func normalize(v any) (any, frame.Kind) {
	switch t := v.(type) {
	case nil:
		return nil, frame.Text
	case string:
		return t, frame.Text
	case int64:
		return t, frame.Int
	case int32:
		return int64(t), frame.Int
	case int16:
		return int64(t), frame.Int
	case int:
		return int64(t), frame.Int
	case float64:
		return t, frame.Float
	case float32:
		return float64(t), frame.Float
	case bool:
		return t, frame.Bool
	case time.Time:
		return t, frame.Time
	case []byte:
		return string(t), frame.Text
	default:
		return fmt.Sprint(t), frame.Text
	}
}

// IsUndefinedTable reports whether err is PostgreSQL's "relation does not
// exist".
func IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
