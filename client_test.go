// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package linerpc_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"go.lsp.dev/linerpc"
	"go.lsp.dev/linerpc/fake"
)

func newPeer(t *testing.T, script fake.Script) *fake.Peer {
	t.Helper()

	peer, err := fake.NewPeer(script)
	require.NoError(t, err)
	t.Cleanup(func() { peer.Close() })

	return peer
}

func dial(ctx context.Context, t *testing.T, addr string, opts ...linerpc.Option) *linerpc.Client {
	t.Helper()

	opts = append([]linerpc.Option{linerpc.WithLogger(zaptest.NewLogger(t))}, opts...)
	client, err := linerpc.Dial(ctx, addr, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestClientCall(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		reply      string
		want       string
		wantErr    error
		wantCode   linerpc.Code
		noResponse bool
	}{
		"result": {
			reply: `{"jsonrpc":"2.0","result":"Hello, world!","id":0}`,
			want:  `"Hello, world!"`,
		},
		"structured result": {
			reply: `{"jsonrpc":"2.0","result":{"sum":3,"parts":[1,2]},"id":0}`,
			want:  `{"sum":3,"parts":[1,2]}`,
		},
		"null result": {
			reply: `{"jsonrpc":"2.0","result":null,"id":0}`,
		},
		"rpc error": {
			reply:    `{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found"},"id":0}`,
			wantErr:  linerpc.ErrMethodNotFound,
			wantCode: linerpc.MethodNotFound,
		},
		"application error": {
			reply:    `{"jsonrpc":"2.0","error":{"code":1001,"message":"out of stock","data":{"sku":"a"}},"id":0}`,
			wantCode: 1001,
		},
		"mismatched id": {
			reply:   `{"jsonrpc":"2.0","result":"Hello, world!","id":1}`,
			wantErr: linerpc.ErrProtocol,
		},
		"string id": {
			reply:   `{"jsonrpc":"2.0","result":"Hello, world!","id":"0"}`,
			wantErr: linerpc.ErrProtocol,
		},
		"null id": {
			reply:   `{"jsonrpc":"2.0","error":{"code":-32700,"message":"Parse error"},"id":null}`,
			wantErr: linerpc.ErrProtocol,
		},
		"wrong version": {
			reply:   `{"jsonrpc":"1.0","result":"Hello, world!","id":0}`,
			wantErr: linerpc.ErrProtocol,
		},
		"missing version": {
			reply:   `{"result":"Hello, world!","id":0}`,
			wantErr: linerpc.ErrSerialization,
		},
		"request instead of response": {
			reply:   `{"jsonrpc":"2.0","method":"hello","id":0}`,
			wantErr: linerpc.ErrProtocol,
		},
		"garbage": {
			reply:   `Hello, world!`,
			wantErr: linerpc.ErrSerialization,
		},
		"both result and error": {
			reply:   `{"jsonrpc":"2.0","result":1,"error":{"code":1,"message":"x"},"id":0}`,
			wantErr: linerpc.ErrSerialization,
		},
		"hang up": {
			noResponse: true,
			wantErr:    linerpc.ErrConnection,
		},
	}
	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			script := fake.Reply(tt.reply)
			if tt.noResponse {
				script = func([]byte) []byte { return nil }
			}
			peer := newPeer(t, script)
			client := dial(ctx, t, peer.Addr())

			got, err := client.Call(ctx, "hello", nil)

			if diff := cmp.Diff([]string{`{"jsonrpc":"2.0","method":"hello","id":0}`}, peer.Received()); diff != "" {
				t.Errorf("sent: (-want +got):\n%s", diff)
			}

			switch {
			case tt.wantCode != 0:
				var rerr *linerpc.Error
				require.True(t, errors.As(err, &rerr), "got %v", err)
				assert.Equal(t, tt.wantCode, rerr.Code)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				for _, kind := range []error{linerpc.ErrProtocol, linerpc.ErrSerialization, linerpc.ErrConnection} {
					assert.NotErrorIs(t, err, kind)
				}
				assert.Nil(t, got)

			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				var rerr *linerpc.Error
				assert.False(t, errors.As(err, &rerr), "transport failure reported as RPC error %v", rerr)
				assert.Nil(t, got)

			case tt.want == "":
				require.NoError(t, err)
				assert.Nil(t, got)

			default:
				require.NoError(t, err)
				assert.JSONEq(t, tt.want, string(got))
			}
		})
	}
}

// echoID answers every request with its own id and leaves notifications
// unanswered.
func echoID(frame []byte) []byte {
	var req struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(frame, &req); err != nil {
		return nil
	}
	if len(req.ID) == 0 {
		return []byte{}
	}
	return []byte(`{"jsonrpc":"2.0","result":true,"id":` + string(req.ID) + "}\n")
}

func TestClientSequentialIDs(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	peer := newPeer(t, echoID)
	client := dial(ctx, t, peer.Addr())

	params, err := linerpc.NewPositionalParams(1, 2)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := client.Call(ctx, "add", params)
		require.NoError(t, err)
		assert.JSONEq(t, `true`, string(got))
	}

	want := []string{
		`{"jsonrpc":"2.0","method":"add","params":[1,2],"id":0}`,
		`{"jsonrpc":"2.0","method":"add","params":[1,2],"id":1}`,
		`{"jsonrpc":"2.0","method":"add","params":[1,2],"id":2}`,
	}
	if diff := cmp.Diff(want, peer.Received()); diff != "" {
		t.Errorf("sent: (-want +got):\n%s", diff)
	}
}

func TestClientConcurrentCalls(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	peer := newPeer(t, echoID)
	client := dial(ctx, t, peer.Addr())

	const calls = 8
	errc := make(chan error, calls)
	for i := 0; i < calls; i++ {
		go func() {
			_, err := client.Call(ctx, "ping", nil)
			errc <- err
		}()
	}
	for i := 0; i < calls; i++ {
		require.NoError(t, <-errc)
	}
	assert.Len(t, peer.Received(), calls)
}

func TestClientNotify(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	peer := newPeer(t, echoID)
	client := dial(ctx, t, peer.Addr())

	require.NoError(t, client.Notify(ctx, "tick", linerpc.ByName(map[string]linerpc.RawMessage{"n": linerpc.RawMessage(`1`)})))

	// the call is answered only once the notification has been read
	_, err := client.Call(ctx, "ping", nil)
	require.NoError(t, err)

	want := []string{
		`{"jsonrpc":"2.0","method":"tick","params":{"n":1}}`,
		`{"jsonrpc":"2.0","method":"ping","id":0}`,
	}
	if diff := cmp.Diff(want, peer.Received()); diff != "" {
		t.Errorf("sent: (-want +got):\n%s", diff)
	}
}

func TestClientCallTimeout(t *testing.T) {
	t.Parallel()

	peer := newPeer(t, func([]byte) []byte { return []byte{} })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	client := dial(context.Background(), t, peer.Addr())
	_, err := client.Call(ctx, "hello", nil)
	require.ErrorIs(t, err, linerpc.ErrConnection)
}

func TestDialRefused(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = linerpc.Dial(context.Background(), addr)
	require.ErrorIs(t, err, linerpc.ErrConnection)
}
