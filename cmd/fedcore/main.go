/*
Copyright 2026 Dima Krasner

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/block"
	"github.com/dimkr/fedcore/cfg"
	"github.com/dimkr/fedcore/collection"
	"github.com/dimkr/fedcore/docstore"
	"github.com/dimkr/fedcore/fed"
	"github.com/dimkr/fedcore/logcontext"
	"github.com/dimkr/fedcore/post"
	"github.com/dimkr/fedcore/render"
	"github.com/dimkr/fedcore/shares"
	_ "github.com/mattn/go-sqlite3"
	"github.com/urfave/cli/v2"
)

// env holds everything commands share.
type env struct {
	BaseDir   string
	Config    *cfg.Config
	Log       *slog.Logger
	Documents docstore.Store
	Cache     *block.Cache

	db *sql.DB
}

func newEnv(cctx *cli.Context) (*env, error) {
	config, err := cfg.Load(cctx.String("config"))
	if err != nil {
		return nil, err
	}

	if domain := cctx.String("domain"); domain != "" {
		config.Domain = domain
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cctx.String("log-level"))); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	e := &env{
		BaseDir: cctx.String("base"),
		Config:  config,
		Log:     slog.New(logcontext.NewHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))),
		Cache:   block.NewCache(config.BlockCacheRefreshInterval),
	}

	switch config.DocumentBackend {
	case "fs":
		e.Documents = &docstore.FS{Dir: e.BaseDir}

	case "sqlite":
		db, err := sql.Open("sqlite3", filepath.Join(e.BaseDir, "documents.sqlite3")+"?_journal_mode=WAL&_busy_timeout=5000")
		if err != nil {
			return nil, err
		}

		store := &docstore.SQLite{DB: db}
		if err := store.Migrate(cctx.Context); err != nil {
			db.Close()
			return nil, err
		}

		e.db = db
		e.Documents = store

	default:
		return nil, fmt.Errorf("unknown document backend: %s", config.DocumentBackend)
	}

	return e, nil
}

func (e *env) Close() {
	if e.db != nil {
		e.db.Close()
	}
}

func (e *env) Handle(nickname string) ap.Handle {
	return ap.Handle{Nickname: nickname, Domain: e.Config.Domain}
}

func (e *env) Blocks() *block.Store {
	return &block.Store{BaseDir: e.BaseDir, Domain: e.Config.Domain, Config: e.Config, Log: e.Log}
}

func (e *env) Shares() *shares.Store {
	return &shares.Store{BaseDir: e.BaseDir, Domain: e.Config.Domain, HTTPPrefix: e.Config.HTTPPrefix, Log: e.Log}
}

func (e *env) Posts() (*post.Service, error) {
	recent, err := render.NewRecentPosts(e.Config.RecentPostsCacheSize)
	if err != nil {
		return nil, err
	}

	return &post.Service{
		BaseDir:     e.BaseDir,
		HTTPPrefix:  e.Config.HTTPPrefix,
		Locator:     post.StoreLocator{Store: e.Documents},
		Mutator:     &collection.Mutator{Store: e.Documents, Retry: docstore.RetryFromConfig(e.Config), Log: e.Log},
		Invalidator: &render.Invalidator{BaseDir: e.BaseDir, Recent: recent},
		Log:         e.Log,
	}, nil
}

func (e *env) Resolver() *fed.Resolver {
	return fed.NewResolver(&http.Client{}, e.Config, e.Log)
}

// withEnv runs a command action with a fresh env.
func withEnv(f func(*cli.Context, *env) error) cli.ActionFunc {
	return func(cctx *cli.Context) error {
		e, err := newEnv(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		return f(cctx, e)
	}
}

func needArgs(cctx *cli.Context, names ...string) ([]string, error) {
	if cctx.NArg() < len(names) {
		return nil, fmt.Errorf("missing %s", names[cctx.NArg()])
	}
	return cctx.Args().Slice()[:len(names)], nil
}

func main() {
	app := &cli.App{
		Name:  "fedcore",
		Usage: "manage blocks, lockdown and activities of a federated instance",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "base",
				Value:   ".",
				Usage:   "base directory",
				EnvVars: []string{"FEDCORE_BASE"},
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "configuration file",
				EnvVars: []string{"FEDCORE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "domain",
				Usage:   "instance domain",
				EnvVars: []string{"FEDCORE_DOMAIN"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "minimum log level",
			},
		},
		Commands: []*cli.Command{
			blockCmd,
			lockdownCmd,
			outboxCmd,
			sendCmd,
			sharesCmd,
			watchCmd,
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exit.ExitCode())
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
