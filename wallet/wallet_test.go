package wallet

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestStaticAndDisconnected(t *testing.T) {
	addr := common.HexToAddress("0x01")
	got, ok := Static(addr).Account()
	require.True(t, ok)
	require.Equal(t, addr, got)

	_, ok = Disconnected{}.Account()
	require.False(t, ok)
}

func TestKeyedConnect(t *testing.T) {
	w, err := NewKeyed()
	require.NoError(t, err)

	_, ok := w.Account()
	require.False(t, ok)

	w.Connect()
	addr, ok := w.Account()
	require.True(t, ok)
	require.Equal(t, w.Address(), addr)

	w.Disconnect()
	_, ok = w.Account()
	require.False(t, ok)

	path := filepath.Join(t.TempDir(), "wallet.key")
	require.NoError(t, w.Save(path))
	loaded, err := LoadKeyed(path)
	require.NoError(t, err)
	require.Equal(t, w.Address(), loaded.Address())
}
