// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"go.lsp.dev/linerpc"
)

func TestHandlers(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	ln := linerpc.NewPipeListener()
	srv := linerpc.NewServer(ln, handlers(),
		linerpc.WithLogger(zaptest.NewLogger(t)),
		linerpc.WithKeepAlive(true),
	)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		require.NoError(t, srv.Close())
		require.NoError(t, <-done)
	})

	conn, err := ln.Dial(ctx)
	require.NoError(t, err)
	client := linerpc.NewClient(conn)
	defer client.Close()

	result, err := client.Call(ctx, "hello", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `"Hello, world!"`, string(result))

	params, err := linerpc.NewNamedParams(map[string]interface{}{"a": 1, "b": []string{"x"}})
	require.NoError(t, err)
	result, err = client.Call(ctx, "echo", params)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":["x"]}`, string(result))

	result, err = client.Call(ctx, "echo", nil)
	require.NoError(t, err)
	assert.Nil(t, result)

	_, err = client.Call(ctx, "goodbye", nil)
	var rerr *linerpc.Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, linerpc.MethodNotFound, rerr.Code)
}

func TestNewCommandFlags(t *testing.T) {
	t.Parallel()

	cmd := newCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--addr", "127.0.0.1:0", "--keep-alive", "--max-frame-size", "64"}))

	addr, err := cmd.Flags().GetString("addr")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", addr)

	keepAlive, err := cmd.Flags().GetBool("keep-alive")
	require.NoError(t, err)
	assert.True(t, keepAlive)

	size, err := cmd.Flags().GetInt("max-frame-size")
	require.NoError(t, err)
	assert.Equal(t, 64, size)
}
