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
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dimkr/fedcore/ap"
	"github.com/urfave/cli/v2"
)

var sharesCmd = &cli.Command{
	Name:  "shares",
	Usage: "manage shared items",
	Subcommands: []*cli.Command{
		{
			Name:      "list",
			ArgsUsage: "<nickname>",
			Action: withEnv(func(cctx *cli.Context, e *env) error {
				args, err := needArgs(cctx, "nickname")
				if err != nil {
					return err
				}

				items, err := e.Shares().List(e.Handle(args[0]))
				if err != nil {
					return err
				}

				ids := make([]string, 0, len(items))
				for id := range items {
					ids = append(ids, id)
				}
				sort.Strings(ids)

				for _, id := range ids {
					item := items[id]
					fmt.Printf("%s\t%s\t%s\t%s\n", id, item.DisplayName, item.Category, time.Unix(item.Expire, 0).Format(time.DateOnly))
				}

				return nil
			}),
		},
		{
			Name:      "add",
			ArgsUsage: "<nickname> <offer.json>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "image",
					Usage: "image to move into the media directory",
				},
			},
			Action: withEnv(func(cctx *cli.Context, e *env) error {
				args, err := needArgs(cctx, "nickname", "offer")
				if err != nil {
					return err
				}

				buf, err := os.ReadFile(args[1])
				if err != nil {
					return err
				}

				var offer ap.OfferObject
				if err := json.Unmarshal(buf, &offer); err != nil {
					return fmt.Errorf("failed to parse %s: %w", args[1], err)
				}

				id, err := e.Shares().Add(e.Handle(args[0]), offer, cctx.String("image"), time.Now())
				if err != nil {
					return err
				}

				fmt.Println(id)
				return nil
			}),
		},
		{
			Name:      "remove",
			ArgsUsage: "<nickname> <display name>",
			Action: withEnv(func(cctx *cli.Context, e *env) error {
				args, err := needArgs(cctx, "nickname", "display name")
				if err != nil {
					return err
				}

				return e.Shares().Remove(e.Handle(args[0]), args[1])
			}),
		},
		{
			Name:  "expire",
			Usage: "remove expired items of all accounts",
			Action: withEnv(func(cctx *cli.Context, e *env) error {
				_, err := expireShares(e, time.Now())
				return err
			}),
		},
	},
}
