// Package localstore is the durable offline cache of the permit client. It
// owns the SQLite database, applies the embedded migrations and performs every
// multi-statement write (cascades, full-refresh replaces, offline mutations
// together with their queue entries) inside a single transaction.
//
// The schema declares no foreign keys. Cascades are enforced here:
//
//   - deleting a county deletes its checklist items;
//   - deleting a package deletes its documents;
//   - a replace never drops or overwrites rows flagged pending_sync.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/client/migrations"
	"github.com/dmitrijs2005/permitsync/internal/client/repositories/checklist"
	"github.com/dmitrijs2005/permitsync/internal/client/repositories/counties"
	"github.com/dmitrijs2005/permitsync/internal/client/repositories/documents"
	"github.com/dmitrijs2005/permitsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/permitsync/internal/client/repositories/packages"
	"github.com/dmitrijs2005/permitsync/internal/client/repositories/syncqueue"
	"github.com/dmitrijs2005/permitsync/internal/client/repositories/users"
	"github.com/dmitrijs2005/permitsync/internal/dbx"
	"github.com/dmitrijs2005/permitsync/internal/filex"
	"github.com/dmitrijs2005/permitsync/internal/logging"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found in local store")

// repos groups the table repositories bound to one handle (the pool or a tx).
type repos struct {
	users     users.Repository
	counties  counties.Repository
	checklist checklist.Repository
	packages  packages.Repository
	documents documents.Repository
	queue     syncqueue.Repository
	metadata  metadata.Repository
}

func newRepos(db dbx.DBTX) repos {
	return repos{
		users:     users.NewSQLiteRepository(db),
		counties:  counties.NewSQLiteRepository(db),
		checklist: checklist.NewSQLiteRepository(db),
		packages:  packages.NewSQLiteRepository(db),
		documents: documents.NewSQLiteRepository(db),
		queue:     syncqueue.NewSQLiteRepository(db),
		metadata:  metadata.NewSQLiteRepository(db),
	}
}

type Store struct {
	db  *sql.DB
	r   repos
	log logging.Logger
	now func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string, log logging.Logger) (*Store, error) {
	if err := filex.EnsureParentDir(path); err != nil {
		return nil, err
	}

	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	if err := migrations.Up(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db, log), nil
}

// New wraps an already migrated database.
func New(db *sql.DB, log logging.Logger) *Store {
	return &Store{
		db:  db,
		r:   newRepos(db),
		log: log.With("component", "localstore"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// inTx runs fn with repositories bound to one transaction.
func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context, r repos) error) error {
	return dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, newRepos(tx))
	})
}
