package terms_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/terms"
	"github.com/pkp/pln/util/storage"
	"github.com/pkp/pln/util/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func input(weight int, keyCode, content string) *terms.Input {
	return &terms.Input{
		Weight:   weight,
		KeyCode:  keyCode,
		LangCode: "en_US",
		Content:  content,
	}
}

func TestAddUpdateDelete(t *testing.T) {
	service := terms.NewService(testutil.MakeContext(t))
	term, err := service.Add(input(2, "plugins.generic.pln.terms_of_use.jurisdiction", "Canadian law applies."), "admin")
	require.Nil(t, err)
	assert.Equal(t, uint64(1), term.Id)

	updated, err := service.Update(term.Id, input(2, term.KeyCode, "British Columbia law applies."), "editor")
	require.Nil(t, err)
	assert.Equal(t, "British Columbia law applies.", updated.Content)

	list, err := service.List()
	require.Nil(t, err)
	require.Equal(t, 1, len(list))
	assert.Equal(t, "British Columbia law applies.", list[0].Content)

	require.Nil(t, service.Delete(term.Id, "admin"))
	list, err = service.List()
	require.Nil(t, err)
	assert.Empty(t, list)

	history, err := service.History(term.Id)
	require.Nil(t, err)
	require.Equal(t, 3, len(history))
	assert.Equal(t, constants.HistoryCreate, history[0].Action)
	assert.Equal(t, constants.HistoryUpdate, history[1].Action)
	assert.Equal(t, "editor", history[1].User)
	assert.Equal(t, constants.HistoryDelete, history[2].Action)
}

func TestAdd_Invalid(t *testing.T) {
	service := terms.NewService(testutil.MakeContext(t))
	_, err := service.Add(input(1, "has spaces", "Content"), "admin")
	assert.NotNil(t, err)
	_, err = service.Add(input(1, "plugins.generic.pln.x", ""), "admin")
	assert.NotNil(t, err)
	_, err = service.Add(input(-1, "plugins.generic.pln.x", "Content"), "admin")
	assert.NotNil(t, err)
	list, err := service.List()
	require.Nil(t, err)
	assert.Empty(t, list)
}

func TestUpdate_Missing(t *testing.T) {
	service := terms.NewService(testutil.MakeContext(t))
	_, err := service.Update(42, input(1, "plugins.generic.pln.x", "Content"), "admin")
	assert.Equal(t, storage.ErrNotFound, errors.Cause(err))
	assert.Equal(t, storage.ErrNotFound, errors.Cause(service.Delete(42, "admin")))
}

func TestReorder(t *testing.T) {
	service := terms.NewService(testutil.MakeContext(t))
	first, err := service.Add(input(0, "plugins.generic.pln.a", "A"), "admin")
	require.Nil(t, err)
	second, err := service.Add(input(1, "plugins.generic.pln.b", "B"), "admin")
	require.Nil(t, err)

	require.Nil(t, service.Reorder([]uint64{second.Id, first.Id}, "admin"))
	list, err := service.List()
	require.Nil(t, err)
	require.Equal(t, 2, len(list))
	assert.Equal(t, "B", list[0].Content)
	assert.Equal(t, "A", list[1].Content)

	history, err := service.History(first.Id)
	require.Nil(t, err)
	require.Equal(t, 2, len(history))
	change, ok := history[1].ChangeSet["weight"]
	require.True(t, ok)
	assert.Equal(t, "0", *change.Old)
	assert.Equal(t, "1", *change.New)

	err = service.Reorder([]uint64{99}, "admin")
	assert.Equal(t, storage.ErrNotFound, errors.Cause(err))
}
