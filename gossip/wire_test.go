package gossip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/driftchain/driftchain/accounts"
)

func TestListenerReceivesFramedEnvelope(t *testing.T) {
	ln, err := NewListener("127.0.0.1:0", 8)
	require.NoError(t, err)
	defer ln.Close()

	u := &accounts.User{Username: "alice", PubKey: []byte("pem")}
	env := UserEnvelope(u)

	require.NoError(t, Send(ln.Addr(), env, SendTimeout))

	select {
	case got := <-ln.Inbox:
		require.Equal(t, KindUser, got.Kind)
		require.Equal(t, "alice", got.User.Username)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelope")
	}
}

func TestSendToClosedListenerIsNetworkError(t *testing.T) {
	ln, err := NewListener("127.0.0.1:0", 1)
	require.NoError(t, err)
	addr := ln.Addr()
	require.NoError(t, ln.Close())

	err = Send(addr, UserEnvelope(&accounts.User{Username: "x"}), 500*time.Millisecond)
	require.ErrorIs(t, err, ErrNetworkError)
}

func TestNodeSyncRequestIsEmpty(t *testing.T) {
	r := &NodeSyncRequest{PeerAddr: "x"}
	require.True(t, r.IsEmpty())

	id := uint64(3)
	r2 := &NodeSyncRequest{BlockID: &id, PeerAddr: "x"}
	require.False(t, r2.IsEmpty())
}
