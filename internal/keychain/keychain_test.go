package keychain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestStoreLookupClear(t *testing.T) {
	keyring.MockInit()

	require.NoError(t, Store("note.amnesio", "cached-password"))

	got, err := Lookup("note.amnesio")
	require.NoError(t, err)
	assert.Equal(t, "cached-password", got)

	// Relative and absolute spellings resolve to the same entry.
	absGot, err := Lookup("./note.amnesio")
	require.NoError(t, err)
	assert.Equal(t, "cached-password", absGot)

	require.NoError(t, Clear("note.amnesio"))
	_, err = Lookup("note.amnesio")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClearAbsentEntry(t *testing.T) {
	keyring.MockInit()

	assert.NoError(t, Clear("never-stored.amnesio"))
}

func TestAvailableWithMockBackend(t *testing.T) {
	keyring.MockInit()

	assert.True(t, Available())
}
