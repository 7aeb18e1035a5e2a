// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"

	"go.lsp.dev/linerpc"
)

const greeting = "Hello, world!"

func handlers() map[string]linerpc.Handler {
	return map[string]linerpc.Handler{
		"hello": linerpc.HandlerFunc(hello),
		"echo":  linerpc.HandlerFunc(echo),
	}
}

func hello(context.Context, *linerpc.Params) (interface{}, error) {
	return greeting, nil
}

// echo returns its params verbatim, null when there are none.
func echo(_ context.Context, params *linerpc.Params) (interface{}, error) {
	if params == nil {
		return nil, nil
	}
	return params, nil
}
