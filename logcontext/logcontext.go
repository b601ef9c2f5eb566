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


// Package logcontext attaches log fields to a [context.Context].
package logcontext

import (
	"context"
	"log/slog"
	"slices"
)

type (
	keyType int

	handler struct {
		inner slog.Handler
	}
)

var key keyType

// Add returns a copy of ctx with additional log fields.
//
// Arguments should be in the same format as [slog.Logger.Log].
//
// Use [NewHandler] to obtain a [slog.Handler] that logs these fields.
func Add(ctx context.Context, args ...any) context.Context {
	if v, ok := ctx.Value(key).([]any); ok {
		return context.WithValue(ctx, key, slices.Concat(v, args))
	}

	return context.WithValue(ctx, key, args)
}

// NewHandler wraps a [slog.Handler] with one that logs the fields attached to the context
// of each record.
func NewHandler(inner slog.Handler) slog.Handler {
	return handler{inner: inner}
}

func (h handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h handler) Handle(ctx context.Context, r slog.Record) error {
	if v, ok := ctx.Value(key).([]any); ok {
		r = r.Clone()
		r.Add(v...)
	}

	return h.inner.Handle(ctx, r)
}

func (h handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return handler{inner: h.inner.WithAttrs(attrs)}
}

func (h handler) WithGroup(name string) slog.Handler {
	return handler{inner: h.inner.WithGroup(name)}
}
