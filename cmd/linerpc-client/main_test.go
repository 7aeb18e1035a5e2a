// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.lsp.dev/linerpc"
	"go.lsp.dev/linerpc/fake"
)

func TestCommand(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		args    []string
		reply   string
		want    string
		sent    string
		wantErr bool
		code    linerpc.Code
	}{
		"no params": {
			args:  []string{"hello"},
			reply: `{"jsonrpc":"2.0","result":"Hello, world!","id":0}`,
			want:  `"Hello, world!"` + "\n",
			sent:  `{"jsonrpc":"2.0","method":"hello","id":0}`,
		},
		"positional params": {
			args:  []string{"echo", `[1, 2, 3]`},
			reply: `{"jsonrpc":"2.0","result":[1,2,3],"id":0}`,
			want:  `[1,2,3]` + "\n",
			sent:  `{"jsonrpc":"2.0","method":"echo","params":[1,2,3],"id":0}`,
		},
		"null result": {
			args:  []string{"nothing"},
			reply: `{"jsonrpc":"2.0","result":null,"id":0}`,
			want:  "null\n",
			sent:  `{"jsonrpc":"2.0","method":"nothing","id":0}`,
		},
		"rpc error": {
			args:    []string{"foo"},
			reply:   `{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found"},"id":0}`,
			sent:    `{"jsonrpc":"2.0","method":"foo","id":0}`,
			wantErr: true,
			code:    linerpc.MethodNotFound,
		},
		"invalid params": {
			args:    []string{"echo", `"x"`},
			wantErr: true,
		},
	}
	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			peer, err := fake.NewPeer(fake.Reply(tt.reply))
			require.NoError(t, err)
			defer peer.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			var out bytes.Buffer
			cmd := newCommand(&out)
			cmd.SetArgs(append([]string{"--addr", peer.Addr(), "--log-level", "error", "--timeout", "5s"}, tt.args...))
			err = cmd.ExecuteContext(ctx)

			if tt.wantErr {
				require.Error(t, err)
				if tt.code != 0 {
					var rerr *linerpc.Error
					require.ErrorAs(t, err, &rerr)
					assert.Equal(t, tt.code, rerr.Code)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, out.String())
			}

			if tt.sent != "" {
				assert.Equal(t, []string{tt.sent}, peer.Received())
			}
		})
	}
}
