package persistence

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftchain/driftchain/accounts"
	"github.com/driftchain/driftchain/ledger/chain"
	"github.com/driftchain/driftchain/ledger/pool"
)

func tempStore(t *testing.T) *Store {
	dir, err := ioutil.TempDir("", "driftchain-store")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return New(dir)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := tempStore(t)

	a := accounts.New()
	_, _, err := a.Register("alice", "pw_alice_long")
	require.NoError(t, err)

	c := chain.New()
	p := pool.New()

	snap := Snapshot{Accounts: a.Export(), Ledger: c.Export(), Pool: p.Export()}
	require.NoError(t, s.Save(snap))

	loaded, ok := s.Load()
	require.True(t, ok)
	require.Len(t, loaded.Accounts, 1)
	require.Equal(t, "alice", loaded.Accounts[0].Username)
	require.Len(t, loaded.Ledger, 1)
}

func TestLoadTamperedArtifactYieldsEmptyState(t *testing.T) {
	s := tempStore(t)

	a := accounts.New()
	c := chain.New()
	p := pool.New()
	require.NoError(t, s.Save(Snapshot{Accounts: a.Export(), Ledger: c.Export(), Pool: p.Export()}))

	// Tamper with the ledger artifact after it was committed.
	path := filepath.Join(s.Dir, ledgerFile)
	require.NoError(t, ioutil.WriteFile(path, []byte("corrupted"), 0o644))

	_, ok := s.Load()
	require.False(t, ok, "tampered ledger artifact must be rejected")
}

func TestLoadMissingManifestYieldsEmptyState(t *testing.T) {
	s := tempStore(t)
	_, ok := s.Load()
	require.False(t, ok)
}
