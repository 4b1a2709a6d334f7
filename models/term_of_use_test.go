package models_test

import (
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestTermOfUseHistoryCreate(t *testing.T) {
	term := &models.TermOfUse{Id: 4, Weight: 1, KeyCode: "plnPluginTerms.one", LangCode: "en-US", Content: "Be nice."}
	history := models.NewTermOfUseHistory(constants.HistoryCreate, nil, term, "admin@example.com")
	assert.Equal(t, uint64(4), history.TermId)
	assert.Equal(t, 5, len(history.ChangeSet))
	change := history.ChangeSet["content"]
	assert.Nil(t, change.Old)
	require.NotNil(t, change.New)
	assert.Equal(t, "Be nice.", *change.New)
}

func TestTermOfUseHistoryUpdate(t *testing.T) {
	before := &models.TermOfUse{Id: 4, Weight: 1, KeyCode: "k", LangCode: "en-US", Content: "Be nice."}
	after := *before
	after.Content = "Be very nice."
	after.Weight = 2
	history := models.NewTermOfUseHistory(constants.HistoryUpdate, before, &after, "")
	assert.Equal(t, 2, len(history.ChangeSet))
	assert.Equal(t, "Be nice.", *history.ChangeSet["content"].Old)
	assert.Equal(t, "Be very nice.", *history.ChangeSet["content"].New)
	assert.Equal(t, "1", *history.ChangeSet["weight"].Old)
	assert.Equal(t, "2", *history.ChangeSet["weight"].New)
}

func TestTermOfUseHistoryDelete(t *testing.T) {
	term := &models.TermOfUse{Id: 9, Content: "Gone."}
	history := models.NewTermOfUseHistory(constants.HistoryDelete, term, nil, "")
	assert.Equal(t, uint64(9), history.TermId)
	change := history.ChangeSet["content"]
	assert.Nil(t, change.New)
	assert.Equal(t, "Gone.", *change.Old)
}
