package storage_test

import (
	"testing"

	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListEntries(t *testing.T) {
	boltDB := openTestDB(t)
	require.Nil(t, boltDB.AddListEntry(constants.Whitelist, models.NewListEntry("good-1", "friend")))
	require.Nil(t, boltDB.AddListEntry(constants.Blacklist, models.NewListEntry("bad-1", "spam")))

	listed, err := boltDB.IsWhitelisted("GOOD-1")
	require.Nil(t, err)
	assert.True(t, listed)
	listed, err = boltDB.IsWhitelisted("bad-1")
	require.Nil(t, err)
	assert.False(t, listed)
	listed, err = boltDB.IsBlacklisted("bad-1")
	require.Nil(t, err)
	assert.True(t, listed)

	listed, err = boltDB.IsListed("bad-1")
	require.Nil(t, err)
	assert.True(t, listed)
	listed, err = boltDB.IsListed("other")
	require.Nil(t, err)
	assert.False(t, listed)

	entries, err := boltDB.ListEntries(constants.Whitelist)
	require.Nil(t, err)
	require.Equal(t, 1, len(entries))
	assert.Equal(t, "friend", entries[0].Comment)

	removed, err := boltDB.RemoveListEntry(constants.Whitelist, "good-1")
	require.Nil(t, err)
	assert.True(t, removed)
	removed, err = boltDB.RemoveListEntry(constants.Whitelist, "good-1")
	require.Nil(t, err)
	assert.False(t, removed)
}

func TestListEntries_UnknownList(t *testing.T) {
	boltDB := openTestDB(t)
	err := boltDB.AddListEntry("greylist", models.NewListEntry("x", ""))
	assert.NotNil(t, err)
	_, err = boltDB.ListEntries("greylist")
	assert.NotNil(t, err)
	err = boltDB.AddListEntry(constants.Whitelist, models.NewListEntry(" ", ""))
	assert.NotNil(t, err)
}
