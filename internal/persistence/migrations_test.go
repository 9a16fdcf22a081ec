package persistence

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeMigrationDB keeps schema_migrations in memory. Versions recorded in a
// transaction become visible to later runs only after Commit.
type fakeMigrationDB struct {
	applied    map[string]bool
	pending    map[string]bool
	log        []string
	statements []string
	failOn     string
	commits    int
	rollbacks  int
}

func (d *fakeMigrationDB) Begin(context.Context) (pgx.Tx, error) {
	if d.applied == nil {
		d.applied = map[string]bool{}
	}
	d.pending = map[string]bool{}
	return &fakeMigrationTx{db: d}, nil
}

type fakeMigrationTx struct {
	pgx.Tx
	db     *fakeMigrationDB
	closed bool
}

func (t *fakeMigrationTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.db.log = append(t.db.log, sql)
	switch {
	case strings.Contains(sql, "pg_advisory_xact_lock"),
		strings.HasPrefix(sql, "CREATE TABLE IF NOT EXISTS schema_migrations"):
	case strings.HasPrefix(sql, "INSERT INTO schema_migrations"):
		t.db.pending[args[0].(string)] = true
	default:
		if t.db.failOn != "" && sql == t.db.failOn {
			return pgconn.CommandTag{}, errors.New("syntax error")
		}
		t.db.statements = append(t.db.statements, sql)
	}
	return pgconn.CommandTag{}, nil
}

func (t *fakeMigrationTx) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	version := args[0].(string)
	return existsRow(t.db.applied[version] || t.db.pending[version])
}

func (t *fakeMigrationTx) Commit(context.Context) error {
	for v := range t.db.pending {
		t.db.applied[v] = true
	}
	t.db.commits++
	t.closed = true
	return nil
}

func (t *fakeMigrationTx) Rollback(context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.db.pending = map[string]bool{}
	t.db.rollbacks++
	t.closed = true
	return nil
}

type existsRow bool

func (r existsRow) Scan(dest ...any) error {
	*dest[0].(*bool) = bool(r)
	return nil
}

func TestRunMigrationsAppliesInOrderAndRecords(t *testing.T) {
	fsys := fstest.MapFS{
		"002_history.sql":   {Data: []byte("CREATE TABLE b();")},
		"001_init.sql":      {Data: []byte("CREATE TABLE a();")},
		"README.md":         {Data: []byte("not sql")},
		"nested/003_x.sql":  {Data: []byte("CREATE TABLE c();")},
		"010_watchlist.sql": {Data: []byte("CREATE TABLE d();")},
	}
	db := &fakeMigrationDB{}

	require.NoError(t, RunMigrations(context.Background(), db, fsys, zaptest.NewLogger(t)))
	assert.Equal(t, []string{"CREATE TABLE a();", "CREATE TABLE b();", "CREATE TABLE d();"}, db.statements)
	assert.Equal(t, map[string]bool{"001_init.sql": true, "002_history.sql": true, "010_watchlist.sql": true}, db.applied)
	require.NotEmpty(t, db.log)
	assert.Contains(t, db.log[0], "pg_advisory_xact_lock", "lock taken before any statement")
	assert.Equal(t, 1, db.commits)
}

func TestRunMigrationsSkipsRecordedFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"001_init.sql": {Data: []byte("CREATE TABLE a();")},
	}
	db := &fakeMigrationDB{}
	require.NoError(t, RunMigrations(context.Background(), db, fsys, zaptest.NewLogger(t)))

	fsys["002_more.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE b();")}
	require.NoError(t, RunMigrations(context.Background(), db, fsys, zaptest.NewLogger(t)))

	assert.Equal(t, []string{"CREATE TABLE a();", "CREATE TABLE b();"}, db.statements)
	assert.Equal(t, 2, db.commits)
}

func TestRunMigrationsRollsBackOnFailure(t *testing.T) {
	fsys := fstest.MapFS{
		"001_init.sql": {Data: []byte("CREATE TABLE a();")},
		"002_bad.sql":  {Data: []byte("CREATE TABLE;")},
		"003_late.sql": {Data: []byte("CREATE TABLE c();")},
	}
	db := &fakeMigrationDB{failOn: "CREATE TABLE;"}

	err := RunMigrations(context.Background(), db, fsys, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "002_bad.sql")
	assert.Equal(t, []string{"CREATE TABLE a();"}, db.statements)
	assert.Empty(t, db.applied, "nothing recorded from a failed run")
	assert.Equal(t, 1, db.rollbacks)
	assert.Zero(t, db.commits)
}
