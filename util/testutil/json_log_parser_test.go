package testutil_test

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkp/pln/util/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `{"stage":"harvest","deposit_uuid":"A","outcome":"success","from_state":"depositedByJournal","to_state":"harvested"}
not json at all
{"stage":"harvest","deposit_uuid":"B","outcome":"failure","from_state":"depositedByJournal","to_state":"harvest-error"}
{"stage":"validate","deposit_uuid":"A","outcome":"success","from_state":"harvested","to_state":"validated"}
`

func TestFindTransitions(t *testing.T) {
	transitions, err := testutil.FindTransitions(strings.NewReader(sampleLog), "A")
	require.Nil(t, err)
	require.Equal(t, 2, len(transitions))
	assert.Equal(t, "harvested", transitions[0].ToState)
	assert.Equal(t, "validated", transitions[1].ToState)

	transitions, err = testutil.FindTransitions(strings.NewReader(sampleLog), "C")
	require.Nil(t, err)
	assert.Empty(t, transitions)
}

func TestFindTransitionsInLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pln.json")
	require.Nil(t, ioutil.WriteFile(path, []byte(sampleLog), 0644))
	transitions, err := testutil.FindTransitionsInLog(path, "B")
	require.Nil(t, err)
	require.Equal(t, 1, len(transitions))
	assert.Equal(t, "failure", transitions[0].Outcome)

	_, err = testutil.FindTransitionsInLog(filepath.Join(t.TempDir(), "missing.json"), "B")
	assert.NotNil(t, err)
}
