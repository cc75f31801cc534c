package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-viewas/adapters/bunadapter"
	"github.com/goliatone/go-viewas/adapters/logrusadapter"
	"github.com/goliatone/go-viewas/directory"
	"github.com/goliatone/go-viewas/engine"
)

const defaultDSN = "file:viewas.db?cache=shared"

type rootOptions struct {
	dsn       string
	table     string
	directory string
	secret    string
	debug     bool
}

// env holds the collaborators one command invocation works with.
type env struct {
	db      *bun.DB
	store   *bunadapter.Store
	dir     *directory.MemoryDirectory
	fixture *Fixture
	engine  *engine.Engine
}

func (e *env) Close() error {
	if e == nil || e.db == nil {
		return nil
	}
	return e.db.Close()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "viewasctl",
		Short:         "Inspect and manage view-as state",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.dsn, "db", defaultDSN, "sqlite DSN of the state store")
	flags.StringVar(&opts.table, "table", bunadapter.DefaultTable, "state table name")
	flags.StringVar(&opts.directory, "directory", "", "YAML fixture with roles, users and locales")
	flags.StringVar(&opts.secret, "secret", "", "anti-forgery secret")
	flags.BoolVar(&opts.debug, "debug", false, "log engine diagnostics")

	cmd.AddCommand(newViewsCmd(opts))
	cmd.AddCommand(newApplyCmd(opts))
	cmd.AddCommand(newCheckCmd(opts))
	cmd.AddCommand(newSettingsCmd(opts))
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openEnv(ctx context.Context, cmd *cobra.Command, opts *rootOptions) (*env, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, opts.dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.dsn, err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	out := &env{db: db, store: bunadapter.NewStore(db, bunadapter.WithTable(opts.table))}
	if err := out.store.CreateTable(ctx); err != nil {
		_ = out.Close()
		return nil, err
	}

	fixture := &Fixture{}
	if opts.directory != "" {
		if fixture, err = LoadFixture(opts.directory); err != nil {
			_ = out.Close()
			return nil, err
		}
	}
	out.fixture = fixture
	out.dir = fixture.Directory()

	base := logrus.New()
	base.SetOutput(cmd.ErrOrStderr())
	if opts.debug {
		base.SetLevel(logrus.DebugLevel)
	}
	engineOpts := []engine.Option{
		engine.WithStorage(out.store),
		engine.WithDirectory(out.dir),
		engine.WithLogger(logrusadapter.New(base)),
		engine.WithDebug(opts.debug),
	}
	if opts.secret != "" {
		engineOpts = append(engineOpts, engine.WithSecret([]byte(opts.secret)))
	}
	if out.engine, err = engine.New(engineOpts...); err != nil {
		_ = out.Close()
		return nil, err
	}
	return out, nil
}
