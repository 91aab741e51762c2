package fixgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
)

type Sandbox struct {
	DB     *sql.DB
	Schema string
}

// NewSandbox returns a connection pool whose search_path is a fresh schema
// that is dropped when t finishes. The test is skipped when no container
// runtime is reachable.
func NewSandbox(t *testing.T, opts ...Option) *Sandbox {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	cfg := newConfig(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()
	if err := boot(ctx, cfg); err != nil {
		t.Fatalf("fixgres boot failed: %v", err)
	}

	mu.Lock()
	base := connString
	mu.Unlock()

	admin, err := sql.Open("pgx", base)
	if err != nil {
		t.Fatalf("open admin: %v", err)
	}

	schema := "t_" + uuid.NewString()[:8]
	if _, err := admin.ExecContext(ctx, `CREATE SCHEMA "`+schema+`"`); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	db, err := sql.Open("pgx", withSearchPath(base, schema))
	if err != nil {
		t.Fatalf("open sandbox: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Close()
		_, _ = admin.ExecContext(ctx, `DROP SCHEMA IF EXISTS "`+schema+`" CASCADE`)
		_ = admin.Close()
	})

	if cfg.setup != nil {
		if err := cfg.setup(db); err != nil {
			t.Fatalf("sandbox setup: %v", err)
		}
	}
	return &Sandbox{DB: db, Schema: schema}
}

// withSearchPath makes every pooled connection resolve unqualified names in
// schema first.
func withSearchPath(base, schema string) string {
	u, _ := url.Parse(base)
	q := u.Query()
	q.Set("options", fmt.Sprintf("-csearch_path=%s", schema))
	u.RawQuery = q.Encode()
	return u.String()
}
