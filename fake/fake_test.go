// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package fake_test

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"go.lsp.dev/linerpc/fake"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPeer(t *testing.T) {
	t.Parallel()

	peer, err := fake.NewPeer(func(frame []byte) []byte {
		if string(frame) == "bye" {
			return nil
		}
		return append([]byte("re:"), append(frame, '\n')...)
	})
	if err != nil {
		t.Fatal(err)
	}
	defer peer.Close()

	conn, err := net.DialTimeout("tcp", peer.Addr(), 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatal(err)
	}

	r := bufio.NewReader(conn)
	if _, err := conn.Write([]byte("ping\n")); err != nil {
		t.Fatal(err)
	}
	got, err := r.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if want := "re:ping\n"; got != want {
		t.Errorf("reply: got %q, want %q", got, want)
	}

	if _, err := conn.Write([]byte("bye\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadString('\n'); err == nil {
		t.Error("expected the peer to close the connection")
	}

	if diff := cmp.Diff([]string{"ping", "bye"}, peer.Received()); diff != "" {
		t.Errorf("received: (-want +got):\n%s", diff)
	}
}

func TestPeerCloseWithOpenConnections(t *testing.T) {
	t.Parallel()

	peer, err := fake.NewPeer(fake.Reply("ok"))
	if err != nil {
		t.Fatal(err)
	}

	// some of these race with Close, which must not wait for them
	var conns []net.Conn
	for i := 0; i < 8; i++ {
		conn, err := net.DialTimeout("tcp", peer.Addr(), 5*time.Second)
		if err != nil {
			t.Fatal(err)
		}
		conns = append(conns, conn)
	}
	defer func() {
		for _, conn := range conns {
			conn.Close()
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		peer.Close()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close blocked on open connections")
	}

	for _, conn := range conns {
		if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
			t.Fatal(err)
		}
		if _, err := bufio.NewReader(conn).ReadString('\n'); err == nil {
			t.Error("expected the peer to close the connection")
		}
	}
}
