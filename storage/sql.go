package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"go-url-registry/types"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pgUniqueViolation = "23505"

//go:embed migrations
var migrationsFS embed.FS

// Supported SQL dialects.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

type linkRow struct {
	ID           string `db:"id"`
	ShortCode    string `db:"short_code"`
	OriginalURL  string `db:"original_url"`
	IsCustomCode bool   `db:"is_custom_code"`
	CreatedAt    int64  `db:"created_at"`
	ExpiresAt    int64  `db:"expires_at"`
	ClickCount   int64  `db:"click_count"`
}

type clickRow struct {
	ShortCode string `db:"short_code"`
	ClickedAt int64  `db:"clicked_at"`
	Source    string `db:"source"`
	Location  string `db:"location"`
}

// SQLStorage persists links in a SQL database. Local sqlite files, remote
// libsql databases and PostgreSQL are supported.
type SQLStorage struct {
	db      *sqlx.DB
	dialect string
	logger  *zap.Logger
}

// NewSQLStorage opens the database named by dsn and applies pending migrations.
//
// DSNs starting with postgres:// or postgresql:// use lib/pq, libsql:// uses
// the libsql client, anything else is treated as a sqlite file path.
func NewSQLStorage(ctx context.Context, dsn string, logger *zap.Logger) (*SQLStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driverName, dialect, source := resolveDriver(dsn)
	logger.Info("Connecting to SQL storage", zap.String("driver", driverName))

	db, err := sqlx.Open(driverName, source)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driverName, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driverName, err)
	}

	s := &SQLStorage{db: db, dialect: dialect, logger: logger}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	// A local sqlite file accepts one writer at a time.
	if driverName == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	return s, nil
}

func resolveDriver(dsn string) (driverName, dialect, source string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", DialectPostgres, dsn
	case strings.HasPrefix(dsn, "libsql://"), strings.HasPrefix(dsn, "wss://"):
		return "libsql", DialectSQLite, dsn
	default:
		source = strings.TrimPrefix(dsn, "sqlite://")
		if !strings.Contains(source, "?") {
			source += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		}
		return "sqlite", DialectSQLite, source
	}
}

func (s *SQLStorage) runMigrations() error {
	d, err := iofs.New(migrationsFS, "migrations/"+s.dialect)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	var m *migrate.Migrate
	switch s.dialect {
	case DialectPostgres:
		driver, err := migratepostgres.WithInstance(s.db.DB, &migratepostgres.Config{})
		if err != nil {
			return fmt.Errorf("migration driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", d, "postgres", driver)
		if err != nil {
			return fmt.Errorf("migration setup: %w", err)
		}
	default:
		driver, err := migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
		if err != nil {
			return fmt.Errorf("migration driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", d, "sqlite", driver)
		if err != nil {
			return fmt.Errorf("migration setup: %w", err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	s.logger.Info("SQL storage migrations applied", zap.String("dialect", s.dialect))
	return nil
}

// Dialect reports which SQL dialect the storage speaks.
func (s *SQLStorage) Dialect() string {
	return s.dialect
}

// Load reads every link and its click log in creation order.
func (s *SQLStorage) Load(ctx context.Context) ([]types.ShortLink, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var rows []linkRow
	err := s.db.SelectContext(ctx, &rows, `SELECT id, short_code, original_url, is_custom_code, created_at, expires_at, click_count
		FROM links ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("select links: %w", err)
	}

	var clicks []clickRow
	err = s.db.SelectContext(ctx, &clicks, `SELECT short_code, clicked_at, source, location FROM clicks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select clicks: %w", err)
	}

	byCode := make(map[string][]types.ClickEvent, len(rows))
	for _, c := range clicks {
		byCode[c.ShortCode] = append(byCode[c.ShortCode], types.ClickEvent{
			Timestamp: fromNanos(c.ClickedAt),
			Source:    c.Source,
			Location:  c.Location,
		})
	}

	links := make([]types.ShortLink, 0, len(rows))
	for _, r := range rows {
		clickLog := byCode[r.ShortCode]
		if clickLog == nil {
			clickLog = []types.ClickEvent{}
		}
		links = append(links, types.ShortLink{
			ID:           r.ID,
			OriginalURL:  r.OriginalURL,
			ShortCode:    r.ShortCode,
			IsCustomCode: r.IsCustomCode,
			CreatedAt:    fromNanos(r.CreatedAt),
			ExpiresAt:    fromNanos(r.ExpiresAt),
			ClickCount:   r.ClickCount,
			Clicks:       clickLog,
		})
	}

	s.logger.Debug("Loaded links from SQL storage", zap.Int("count", len(links)))
	return links, nil
}

// Create inserts a new link together with any clicks it already carries.
func (s *SQLStorage) Create(ctx context.Context, link types.ShortLink) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO links
			(id, short_code, original_url, is_custom_code, created_at, expires_at, click_count)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
			link.ID, link.ShortCode, link.OriginalURL, link.IsCustomCode,
			link.CreatedAt.UnixNano(), link.ExpiresAt.UnixNano(), link.ClickCount)
		if isUniqueViolation(err) {
			s.logger.Warn("Attempt to create duplicate short code", zap.String("shortCode", link.ShortCode))
			return ErrShortURLExists
		}
		if err != nil {
			return fmt.Errorf("insert link: %w", err)
		}

		for _, click := range link.Clicks {
			if err := insertClick(ctx, tx, link.ShortCode, click); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordClick increments the click count and appends the event in one transaction.
func (s *SQLStorage) RecordClick(ctx context.Context, shortCode string, click types.ClickEvent) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE links SET click_count = click_count + 1 WHERE short_code = ?`), shortCode)
		if err != nil {
			return fmt.Errorf("increment click count: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("increment click count: %w", err)
		}
		if affected == 0 {
			return ErrShortURLNotFound
		}
		return insertClick(ctx, tx, shortCode, click)
	})
}

// Delete removes the given links and their click logs.
func (s *SQLStorage) Delete(ctx context.Context, shortCodes ...string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if len(shortCodes) == 0 {
		return nil
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, table := range []string{"clicks", "links"} {
			query, args, err := sqlx.In(`DELETE FROM `+table+` WHERE short_code IN (?)`, shortCodes)
			if err != nil {
				return fmt.Errorf("build delete from %s: %w", table, err)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
		}
		return nil
	})
}

// DeleteAll removes every link and click.
func (s *SQLStorage) DeleteAll(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, table := range []string{"clicks", "links"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
		}
		return nil
	})
}

// Close closes the underlying database handle.
func (s *SQLStorage) Close() error {
	s.logger.Info("Closing SQL storage")
	return s.db.Close()
}

func (s *SQLStorage) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("Rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertClick(ctx context.Context, tx *sqlx.Tx, shortCode string, click types.ClickEvent) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO clicks (short_code, clicked_at, source, location) VALUES (?, ?, ?, ?)`),
		shortCode, click.Timestamp.UnixNano(), click.Source, click.Location)
	if err != nil {
		return fmt.Errorf("insert click: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure. The libsql client returns plain errors carrying the
// sqlite message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
