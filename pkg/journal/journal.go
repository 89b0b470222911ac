// Package journal keeps a local history of publish results. The router never
// writes to it; the CLI records each result after a publish returns.
package journal

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	logging "github.com/ipfs/go-log/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/kgcourse/geopub/pkg/ids"
	"github.com/kgcourse/geopub/pkg/router"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var log = logging.Logger("pkg/journal")

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const (
	DefaultFileName              = "journal.db"
	DefaultPreparedStmtCacheSize = 32
	defaultBusyTimeout           = 10 * time.Second
)

var ErrDuplicate = errors.New("request already recorded")

// Entry is one recorded publish.
type Entry struct {
	RequestID ids.ID        `json:"requestId"`
	Network   string        `json:"network"`
	EditName  string        `json:"editName"`
	OpCount   int           `json:"opCount"`
	Result    router.Result `json:"result"`
	CreatedAt time.Time     `json:"createdAt"`
}

type row struct {
	RequestID       ids.ID `db:"request_id"`
	Network         string `db:"network"`
	EditName        string `db:"edit_name"`
	OpCount         int    `db:"op_count"`
	Success         bool   `db:"success"`
	SpaceID         string `db:"space_id"`
	EditID          string `db:"edit_id"`
	CID             string `db:"cid"`
	TransactionHash string `db:"transaction_hash"`
	Error           string `db:"error"`
	CreatedAt       int64  `db:"created_at"`
}

func toRow(e Entry) row {
	return row{
		RequestID:       e.RequestID,
		Network:         e.Network,
		EditName:        e.EditName,
		OpCount:         e.OpCount,
		Success:         e.Result.Success,
		SpaceID:         e.Result.SpaceID,
		EditID:          e.Result.EditID,
		CID:             e.Result.CID,
		TransactionHash: e.Result.TransactionHash,
		Error:           e.Result.Error,
		CreatedAt:       e.CreatedAt.UnixMilli(),
	}
}

func (r row) entry() Entry {
	return Entry{
		RequestID: r.RequestID,
		Network:   r.Network,
		EditName:  r.EditName,
		OpCount:   r.OpCount,
		Result: router.Result{
			Success:         r.Success,
			EditID:          r.EditID,
			CID:             r.CID,
			TransactionHash: r.TransactionHash,
			SpaceID:         r.SpaceID,
			Error:           r.Error,
		},
		CreatedAt: time.UnixMilli(r.CreatedAt),
	}
}

type Journal struct {
	db            *sqlx.DB
	preparedStmts *lru.Cache[string, *sqlx.Stmt]
	now           func() time.Time
}

// IsPostgres reports whether url names a PostgreSQL server.
func IsPostgres(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// Open opens the journal in the PostgreSQL database at databaseURL when one
// is given, and in a SQLite file inside dataDir otherwise.
func Open(ctx context.Context, dataDir, databaseURL string) (*Journal, error) {
	if databaseURL != "" {
		if !IsPostgres(databaseURL) {
			return nil, fmt.Errorf("unsupported database url %q: only postgres:// is supported", databaseURL)
		}
		return OpenPostgres(ctx, databaseURL)
	}
	if dataDir == "" {
		return nil, errors.New("either a data dir or a database url is required")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return OpenSQLite(ctx, filepath.Join(dataDir, DefaultFileName))
}

func OpenSQLite(ctx context.Context, path string) (*Journal, error) {
	pragmas := []string{
		"_pragma=journal_mode(WAL)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", defaultBusyTimeout.Milliseconds()),
		"_pragma=synchronous(NORMAL)",
	}
	db, err := sqlx.Open("sqlite", fmt.Sprintf("file:%s?%s", path, strings.Join(pragmas, "&")))
	if err != nil {
		return nil, fmt.Errorf("opening journal at %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return open(ctx, db, goose.DialectSQLite3)
}

func OpenPostgres(ctx context.Context, url string) (*Journal, error) {
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}
	return open(ctx, db, goose.DialectPostgres)
}

func open(ctx context.Context, db *sqlx.DB, dialect goose.Dialect) (*Journal, error) {
	if err := migrate(ctx, db, dialect); err != nil {
		db.Close()
		return nil, err
	}
	cache, err := lru.NewWithEvict(DefaultPreparedStmtCacheSize, func(_ string, stmt *sqlx.Stmt) {
		stmt.Close()
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db, preparedStmts: cache, now: time.Now}, nil
}

func migrate(ctx context.Context, db *sqlx.DB, dialect goose.Dialect) error {
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, db.DB, migrations)
	if err != nil {
		return fmt.Errorf("loading journal migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying journal migrations: %w", err)
	}
	for _, r := range results {
		log.Debugw("applied migration", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

func (j *Journal) prepare(ctx context.Context, query string) (*sqlx.Stmt, error) {
	query = j.db.Rebind(query)
	if stmt, ok := j.preparedStmts.Get(query); ok {
		return stmt, nil
	}
	stmt, err := j.db.PreparexContext(ctx, query)
	if err != nil {
		return nil, err
	}
	_ = j.preparedStmts.Add(query, stmt)
	return stmt, nil
}

const insertQuery = `INSERT INTO publishes
  (request_id, network, edit_name, op_count, success, space_id, edit_id, cid, transaction_hash, error, created_at)
  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Record stores an entry. CreatedAt defaults to now.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.RequestID.IsNil() {
		return errors.New("recording publish: request id is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = j.now()
	}
	exists, err := j.exists(ctx, e.RequestID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("recording publish %s: %w", e.RequestID, ErrDuplicate)
	}

	stmt, err := j.prepare(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	r := toRow(e)
	_, err = stmt.ExecContext(ctx,
		r.RequestID, r.Network, r.EditName, r.OpCount, r.Success,
		r.SpaceID, r.EditID, r.CID, r.TransactionHash, r.Error, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording publish %s: %w", e.RequestID, err)
	}
	log.Debugw("recorded publish", "request", e.RequestID, "success", e.Result.Success)
	return nil
}

func (j *Journal) exists(ctx context.Context, id ids.ID) (bool, error) {
	stmt, err := j.prepare(ctx, `SELECT COUNT(*) FROM publishes WHERE request_id = ?`)
	if err != nil {
		return false, fmt.Errorf("preparing lookup: %w", err)
	}
	var n int
	if err := stmt.GetContext(ctx, &n, id); err != nil {
		return false, fmt.Errorf("looking up publish %s: %w", id, err)
	}
	return n > 0, nil
}

const listQuery = `SELECT request_id, network, edit_name, op_count, success, space_id, edit_id, cid, transaction_hash, error, created_at
  FROM publishes ORDER BY created_at DESC, request_id LIMIT ?`

// List returns up to limit entries, newest first. A limit of zero or less
// returns everything.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	stmt, err := j.prepare(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("preparing list: %w", err)
	}
	var rows []row
	if err := stmt.SelectContext(ctx, &rows, limitArg(j.db.DriverName(), limit)); err != nil {
		return nil, fmt.Errorf("listing publishes: %w", err)
	}
	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = r.entry()
	}
	return entries, nil
}

// limitArg maps "no limit" onto each dialect's spelling.
func limitArg(driver string, limit int) any {
	if limit >= 0 {
		return limit
	}
	if driver == "postgres" {
		// LIMIT NULL is LIMIT ALL.
		return nil
	}
	return -1
}

func (j *Journal) Close() error {
	j.preparedStmts.Purge()
	return j.db.Close()
}
