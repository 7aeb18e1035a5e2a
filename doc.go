// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package linerpc is a minimal implementation of the JSON RPC 2 spec over
// newline delimited byte streams.
//
// https://www.jsonrpc.org/specification
//
// Every message travels as one compact JSON object followed by a single
// newline. A Client issues one call at a time over its connection; a Server
// dispatches each request it reads to the Handler registered for the method
// and, unless WithKeepAlive is set, closes the connection after answering.
//
// It is intended to be compatible with other implementations at the wire level.
package linerpc // import "go.lsp.dev/linerpc"
