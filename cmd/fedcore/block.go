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
	"fmt"
	"strings"

	"github.com/dimkr/fedcore/ap"
	"github.com/urfave/cli/v2"
)

var accountFlag = &cli.StringFlag{
	Name:  "account",
	Usage: "nickname of a local account; the block is instance-wide if unset",
}

// parseEntry splits a block list entry: #tag, *@domain or nickname@domain.
func parseEntry(entry string) (string, string, error) {
	if strings.HasPrefix(entry, "#") {
		return entry, "", nil
	}

	h, err := ap.ParseHandle(entry)
	if err != nil {
		return "", "", fmt.Errorf("invalid entry %q: %w", entry, err)
	}

	return h.Nickname, h.Domain, nil
}

func report(changed bool, yes, no string) {
	if changed {
		fmt.Println(yes)
	} else {
		fmt.Println(no)
	}
}

var blockCmd = &cli.Command{
	Name:  "block",
	Usage: "manage block lists",
	Subcommands: []*cli.Command{
		{
			Name:      "add",
			ArgsUsage: "<#tag|*@domain|nickname@domain>",
			Flags:     []cli.Flag{accountFlag},
			Action: withEnv(func(cctx *cli.Context, e *env) error {
				args, err := needArgs(cctx, "entry")
				if err != nil {
					return err
				}

				nickname, domain, err := parseEntry(args[0])
				if err != nil {
					return err
				}

				blocks := e.Blocks()

				var added bool
				if account := cctx.String("account"); account != "" {
					added, err = blocks.AddAccount(e.Handle(account), nickname, domain)
				} else {
					added, err = blocks.AddGlobal(nickname, domain)
				}
				if err != nil {
					return err
				}

				report(added, "Blocked "+args[0], args[0]+" is already blocked")
				return nil
			}),
		},
		{
			Name:      "remove",
			ArgsUsage: "<#tag|*@domain|nickname@domain>",
			Flags:     []cli.Flag{accountFlag},
			Action: withEnv(func(cctx *cli.Context, e *env) error {
				args, err := needArgs(cctx, "entry")
				if err != nil {
					return err
				}

				nickname, domain, err := parseEntry(args[0])
				if err != nil {
					return err
				}

				blocks := e.Blocks()

				var removed bool
				if account := cctx.String("account"); account != "" {
					removed, err = blocks.RemoveAccount(e.Handle(account), nickname, domain)
				} else {
					removed, err = blocks.RemoveGlobal(nickname, domain)
				}
				if err != nil {
					return err
				}

				report(removed, "Unblocked "+args[0], args[0]+" is not blocked")
				return nil
			}),
		},
		{
			Name:      "check",
			Usage:     "check whether or not a hashtag, domain or handle is blocked",
			ArgsUsage: "<#tag|domain|nickname@domain>",
			Flags:     []cli.Flag{accountFlag},
			Action: withEnv(func(cctx *cli.Context, e *env) error {
				args, err := needArgs(cctx, "entry")
				if err != nil {
					return err
				}

				blocks := e.Blocks()
				entry := args[0]

				var blocked bool
				switch {
				case strings.HasPrefix(entry, "#"):
					blocked = blocks.IsBlockedHashtag(entry, e.Cache)

				case !strings.Contains(entry, "@"):
					blocked = blocks.IsBlockedDomain(entry, e.Cache)

				default:
					h, err := ap.ParseHandle(entry)
					if err != nil {
						return err
					}

					if account := cctx.String("account"); account != "" {
						blocked = blocks.IsBlocked(e.Handle(account), h.Nickname, h.Domain, e.Cache)
					} else {
						blocked = blocks.IsBlockedDomain(h.Domain, e.Cache) || blocks.IsBlocked(ap.Handle{}, h.Nickname, h.Domain, e.Cache)
					}
				}

				report(blocked, entry+" is blocked", entry+" is not blocked")
				return nil
			}),
		},
	},
}

var lockdownCmd = &cli.Command{
	Name:  "lockdown",
	Usage: "restrict federation to known instances",
	Subcommands: []*cli.Command{
		{
			Name:  "on",
			Usage: "allow only the instance domain and domains of followed and following accounts",
			Action: withEnv(func(cctx *cli.Context, e *env) error {
				return e.Blocks().SetLockdown(true)
			}),
		},
		{
			Name: "off",
			Action: withEnv(func(cctx *cli.Context, e *env) error {
				return e.Blocks().SetLockdown(false)
			}),
		},
		{
			Name: "status",
			Action: withEnv(func(cctx *cli.Context, e *env) error {
				report(e.Blocks().LockdownActive(), "Lockdown is active", "Lockdown is inactive")
				return nil
			}),
		},
		{
			Name:  "expire",
			Usage: "end lockdown if it has been active for too long",
			Action: withEnv(func(cctx *cli.Context, e *env) error {
				expired, err := e.Blocks().LockdownHasExpired(e.Config.LockdownMaxAge)
				if err != nil {
					return err
				}

				report(expired, "Lockdown has expired", "Lockdown has not expired")
				return nil
			}),
		},
	},
}
