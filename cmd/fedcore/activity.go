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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dimkr/fedcore/ap"
	"github.com/dimkr/fedcore/fed"
	"github.com/dimkr/fedcore/outbox"
	"github.com/urfave/cli/v2"
)

var outboxCmd = &cli.Command{
	Name:      "outbox",
	Usage:     "apply an activity posted by a local account and deliver it",
	ArgsUsage: "<nickname> [activity.json]",
	Action: withEnv(func(cctx *cli.Context, e *env) error {
		args, err := needArgs(cctx, "nickname")
		if err != nil {
			return err
		}

		var raw []byte
		if path := cctx.Args().Get(1); path != "" && path != "-" {
			raw, err = os.ReadFile(path)
		} else {
			raw, err = io.ReadAll(io.LimitReader(os.Stdin, e.Config.MaxRequestBodySize))
		}
		if err != nil {
			return err
		}

		posts, err := e.Posts()
		if err != nil {
			return err
		}

		blocks := e.Blocks()
		deliverer := fed.NewDeliverer(e.Resolver(), e.Config, blocks, e.Cache, nil, fed.KeyDir{BaseDir: e.BaseDir, HTTPPrefix: e.Config.HTTPPrefix}, e.Log)

		p := outbox.Processor{
			Config:  e.Config,
			Blocks:  blocks,
			Cache:   e.Cache,
			Posts:   posts,
			Shares:  e.Shares(),
			Relayer: deliverer,
			Log:     e.Log,
		}

		err = p.Process(cctx.Context, e.Handle(args[0]), raw)
		deliverer.Wait()
		return err
	}),
}

type sendFunc func(*fed.Sender, context.Context, ap.Handle, fed.Credentials, string) (*ap.Activity, error)

func newSendCmd(name, usage string, send sendFunc) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<nickname> <url>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "password",
				Usage:   "account password",
				EnvVars: []string{"FEDCORE_PASSWORD"},
			},
		},
		Action: withEnv(func(cctx *cli.Context, e *env) error {
			args, err := needArgs(cctx, "nickname", "url")
			if err != nil {
				return err
			}

			sender := fed.Sender{Resolver: e.Resolver(), Config: e.Config, Log: e.Log}
			creds := fed.Credentials{Nickname: args[0], Password: cctx.String("password")}

			sent, err := send(&sender, cctx.Context, e.Handle(args[0]), creds, args[1])
			if err != nil {
				return cli.Exit(err.Error(), fed.Code(err))
			}

			buf, err := json.MarshalIndent(sent, "", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(buf))
			return nil
		}),
	}
}

var sendCmd = &cli.Command{
	Name:  "send",
	Usage: "post an activity to the outbox of an account, like a client",
	Subcommands: []*cli.Command{
		newSendCmd("like", "like a post", (*fed.Sender).LikeViaServer),
		newSendCmd("unlike", "undo a like", (*fed.Sender).UndoLikeViaServer),
		newSendCmd("announce", "share a post", (*fed.Sender).AnnounceViaServer),
		newSendCmd("unannounce", "undo a share", (*fed.Sender).UndoAnnounceViaServer),
		newSendCmd("mute", "mute a post", (*fed.Sender).MuteViaServer),
		newSendCmd("unmute", "undo a mute", (*fed.Sender).UndoMuteViaServer),
		newSendCmd("block", "block the author of a post", (*fed.Sender).BlockViaServer),
		newSendCmd("unblock", "undo a block", (*fed.Sender).UndoBlockViaServer),
	},
}
