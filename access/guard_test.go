package access_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/pkp/pln/access"
	"github.com/pkp/pln/stats"
	"github.com/pkp/pln/util/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type fakeLists struct {
	white map[string]bool
	black map[string]bool
	err   error
}

func (lists fakeLists) IsWhitelisted(uuid string) (bool, error) {
	return lists.white[uuid], lists.err
}

func (lists fakeLists) IsBlacklisted(uuid string) (bool, error) {
	return lists.black[uuid], lists.err
}

func TestCheckAccess_Precedence(t *testing.T) {
	lists := fakeLists{
		white: map[string]bool{"BOTH": true, "WHITE": true},
		black: map[string]bool{"BOTH": true, "BLACK": true},
	}
	log, _ := testutil.MemoryLogger("access_test")
	for _, accepting := range []bool{true, false} {
		guard := access.NewGuard(lists, accepting, log, nil)
		assert.True(t, guard.CheckAccess("both"), "allow list wins over deny list")
		assert.True(t, guard.CheckAccess("white"))
		assert.False(t, guard.CheckAccess("black"))
		assert.Equal(t, accepting, guard.CheckAccess("neither"))
	}
}

func TestCheckAccess_AuditLog(t *testing.T) {
	lists := fakeLists{
		white: map[string]bool{"WHITE": true},
		black: map[string]bool{"BLACK": true},
	}
	log, backend := testutil.MemoryLogger("access_test")
	guard := access.NewGuard(lists, true, log, nil)
	guard.CheckAccess("white")
	guard.CheckAccess("black")
	guard.CheckAccess("other")
	guard = access.NewGuard(lists, false, log, nil)
	guard.CheckAccessFor("other", "10.0.0.1")

	assert.Equal(t, []string{
		"Checking access for WHITE",
		"whitelisted WHITE",
		"Checking access for BLACK",
		"blacklisted BLACK",
		"Checking access for OTHER",
		"default OTHER accepting",
		"Checking access for OTHER (10.0.0.1)",
		"default OTHER not accepting",
	}, testutil.LoggedMessages(backend))
}

func TestCheckAccess_LookupErrorDenies(t *testing.T) {
	lists := fakeLists{err: errors.New("db closed")}
	log, _ := testutil.MemoryLogger("access_test")
	reg := prometheus.NewRegistry()
	collector := stats.NewCollector(reg)
	guard := access.NewGuard(lists, true, log, collector)
	assert.False(t, guard.CheckAccess("anyone"))
	assert.Equal(t, float64(1), promtest.ToFloat64(collector.AccessChecks.WithLabelValues(access.DecisionLookupError)))
}

func TestCheckAccess_Metrics(t *testing.T) {
	lists := fakeLists{white: map[string]bool{"WHITE": true}}
	log, _ := testutil.MemoryLogger("access_test")
	reg := prometheus.NewRegistry()
	collector := stats.NewCollector(reg)
	guard := access.NewGuard(lists, false, log, collector)
	guard.CheckAccess("white")
	guard.CheckAccess("other")
	guard.CheckAccess("other")
	assert.Equal(t, float64(1), promtest.ToFloat64(collector.AccessChecks.WithLabelValues(access.DecisionWhitelisted)))
	assert.Equal(t, float64(2), promtest.ToFloat64(collector.AccessChecks.WithLabelValues(access.DecisionNotAccepting)))
}

func TestCheckAccess_BoltStore(t *testing.T) {
	_context := testutil.MakeContext(t)
	assert.Equal(t, _context.Config.PlnAccepting, _context.Guard.CheckAccess("unlisted-provider"))
}
