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
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dimkr/fedcore/acct"
	"github.com/dimkr/fedcore/block"
	"github.com/dimkr/fedcore/fed"
	"github.com/dimkr/fedcore/inbox"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

const sharesExpiryInterval = time.Hour

func expireShares(e *env, now time.Time) (int, error) {
	accounts, err := acct.List(e.BaseDir)
	if err != nil {
		return 0, err
	}

	store := e.Shares()

	total := 0
	for _, h := range accounts {
		n, err := store.Expire(h, now)
		if err != nil {
			e.Log.Warn("Failed to expire shared items", "account", h.String(), "error", err)
			continue
		}
		total += n
	}

	return total, nil
}

var watchCmd = &cli.Command{
	Name:  "watch",
	Usage: "receive activities, reload block lists on change and expire lockdown and shared items, until interrupted",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "listen",
			Aliases: []string{"metrics"},
			Usage:   "address to serve account inboxes and Prometheus metrics on",
		},
	},
	Action: withEnv(func(cctx *cli.Context, e *env) error {
		ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		path := acct.GlobalPath(e.BaseDir, acct.Blocking)
		if err := os.MkdirAll(acct.GlobalPath(e.BaseDir, ""), 0o755); err != nil {
			return err
		}

		watcher, err := block.NewWatcher(e.Log, path, e.Config.BlockListReloadDelay, e.Cache)
		if err != nil {
			return err
		}
		defer watcher.Close()

		posts, err := e.Posts()
		if err != nil {
			return err
		}

		var wg sync.WaitGroup

		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Blocks().ExpireLockdown(ctx)
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()

			t := time.NewTicker(sharesExpiryInterval)
			defer t.Stop()

			for {
				select {
				case <-ctx.Done():
					return

				case <-t.C:
					if _, err := expireShares(e, time.Now()); err != nil {
						e.Log.Error("Failed to expire shared items", "error", err)
					}
				}
			}
		}()

		if addr := cctx.String("listen"); addr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.Handle(inbox.Pattern, &inbox.Processor{
				Config:   e.Config,
				Blocks:   e.Blocks(),
				Cache:    e.Cache,
				Posts:    posts,
				Verifier: &fed.Verifier{Resolver: e.Resolver(), Config: e.Config},
				Log:      e.Log,
			})

			srv := http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: time.Second * 10}

			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					e.Log.Error("Listener has failed", "error", err)
					stop()
				}
			}()

			wg.Add(1)
			go func() {
				defer wg.Done()
				<-ctx.Done()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
		}

		e.Log.Info("Watching", "path", path)
		<-ctx.Done()
		e.Log.Info("Shutting down")

		wg.Wait()
		return nil
	}),
}
