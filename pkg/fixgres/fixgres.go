// Package fixgres boots one throwaway PostgreSQL container per test binary
// and hands each test its own schema inside it.
package fixgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

type config struct {
	image    string
	dbName   string
	user     string
	password string
	setup    func(*sql.DB) error
}

type Option func(*config)

func WithImage(i string) Option    { return func(c *config) { c.image = i } }
func WithDBName(n string) Option   { return func(c *config) { c.dbName = n } }
func WithUser(u string) Option     { return func(c *config) { c.user = u } }
func WithPassword(p string) Option { return func(c *config) { c.password = p } }

// WithSetup runs fn against every new sandbox before the test sees it,
// typically to create tables. fn's unqualified DDL lands in the sandbox
// schema.
func WithSetup(fn func(*sql.DB) error) Option {
	return func(c *config) { c.setup = fn }
}

func newConfig(opts []Option) *config {
	c := &config{
		image:    "docker.io/postgres:16-alpine",
		dbName:   "app",
		user:     "postgres",
		password: "pass",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var (
	once       sync.Once
	bootErr    error
	mu         sync.Mutex
	pg         *postgres.PostgresContainer
	connString string
)

func boot(ctx context.Context, c *config) error {
	once.Do(func() {
		container, err := postgres.Run(ctx,
			c.image,
			postgres.WithDatabase(c.dbName),
			postgres.WithUsername(c.user),
			postgres.WithPassword(c.password),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			bootErr = err
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			bootErr = err
			return
		}
		port, err := container.MappedPort(ctx, "5432/tcp")
		if err != nil {
			bootErr = err
			return
		}

		mu.Lock()
		pg = container
		connString = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			c.user, c.password, host, port.Port(), c.dbName,
		)
		mu.Unlock()
	})
	return bootErr
}

// ShutdownNow terminates the container. Call it from TestMain after m.Run.
func ShutdownNow() error {
	mu.Lock()
	defer mu.Unlock()
	if pg == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := pg.Terminate(ctx)
	pg = nil
	return err
}
