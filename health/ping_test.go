package health_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/context"
	"github.com/pkp/pln/health"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/util/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pingTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<plnplugin>
  <ojsInfo><release>%s</release></ojsInfo>
  <pluginInfo><release>1.2.0.0</release></pluginInfo>
  <journalInfo>
    <title>Journal of &lt;b&gt;Bold&lt;/b&gt; Ideas</title>
    <articles count="42"/>
  </journalInfo>
  <terms termsAccepted="%s"/>
</plnplugin>`

// gatewayServer answers pings with the given version and terms.
// An empty version makes the server return 500.
func gatewayServer(t *testing.T, version, terms string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/index.php/journal"+constants.PingPath {
			http.NotFound(w, r)
			return
		}
		if version == "" {
			http.Error(w, "<h1>Server Error</h1>", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, pingTemplate, version, terms)
	}))
	t.Cleanup(server.Close)
	return server
}

func saveProvider(t *testing.T, _context *context.Context, server *httptest.Server) *models.Provider {
	provider := testutil.MakeProvider()
	provider.Url = server.URL + "/index.php/journal"
	provider.Status = constants.ProviderNew
	provider.Contacted = time.Now().UTC().AddDate(0, 0, -30)
	require.Nil(t, _context.Store.SaveProvider(provider))
	return provider
}

func TestPing_Enrolls(t *testing.T) {
	_context := testutil.MakeContext(t)
	provider := saveProvider(t, _context, gatewayServer(t, "3.3.0.8", "yes"))

	result, err := health.NewPinger(_context).Ping(provider)
	require.Nil(t, err)
	assert.False(t, result.HasError())
	assert.Equal(t, "3.3.0.8", result.ApplicationVersion)
	assert.Equal(t, 42, result.ArticleCount)
	assert.Equal(t, "Journal of Bold Ideas", result.JournalTitle)

	stored, err := _context.Store.GetProvider(provider.Uuid)
	require.Nil(t, err)
	assert.Equal(t, constants.ProviderHealthy, stored.Status)
	assert.Equal(t, "Journal of Bold Ideas", stored.Title)
	assert.Equal(t, "3.3.0.8", stored.OjsVersion)
	assert.True(t, stored.TermsAccepted)
	assert.True(t, stored.Contacted.After(provider.Contacted))

	entries, err := _context.Store.ListEntries(constants.Whitelist)
	require.Nil(t, err)
	require.Equal(t, 1, len(entries))
	assert.Equal(t, provider.Uuid, entries[0].Uuid)
	assert.Equal(t, provider.Url+" added by ping.", entries[0].Comment)
	assert.Equal(t, float64(1), promtest.ToFloat64(_context.Collector.Pings.WithLabelValues(health.PingEnrolled)))
}

func TestPing_BelowMinimumVersion(t *testing.T) {
	_context := testutil.MakeContext(t)
	provider := saveProvider(t, _context, gatewayServer(t, "3.1.1.4", "yes"))

	result, err := health.NewPinger(_context).Ping(provider)
	require.Nil(t, err)
	assert.False(t, result.HasError())

	stored, err := _context.Store.GetProvider(provider.Uuid)
	require.Nil(t, err)
	assert.Equal(t, constants.ProviderHealthy, stored.Status)
	listed, err := _context.Store.IsWhitelisted(provider.Uuid)
	require.Nil(t, err)
	assert.False(t, listed)
}

func TestPing_AlreadyListed(t *testing.T) {
	_context := testutil.MakeContext(t)
	provider := saveProvider(t, _context, gatewayServer(t, "3.3.0.8", "yes"))
	require.Nil(t, _context.Store.AddListEntry(constants.Blacklist, models.NewListEntry(provider.Uuid, "spam")))

	_, err := health.NewPinger(_context).Ping(provider)
	require.Nil(t, err)
	listed, err := _context.Store.IsWhitelisted(provider.Uuid)
	require.Nil(t, err)
	assert.False(t, listed)
}

func TestPing_Failure(t *testing.T) {
	_context := testutil.MakeContext(t)
	provider := saveProvider(t, _context, gatewayServer(t, "", ""))

	result, err := health.NewPinger(_context).Ping(provider)
	require.Nil(t, err)
	assert.True(t, result.HasError())
	assert.Contains(t, result.Error, "500")
	assert.Equal(t, "", result.ApplicationVersion)

	stored, err := _context.Store.GetProvider(provider.Uuid)
	require.Nil(t, err)
	assert.Equal(t, constants.ProviderPingError, stored.Status)
	assert.Equal(t, provider.Title, stored.Title)
	assert.Equal(t, provider.OjsVersion, stored.OjsVersion)
	assert.True(t, stored.Contacted.Equal(provider.Contacted))
	entries, err := _context.Store.ListEntries(constants.Whitelist)
	require.Nil(t, err)
	assert.Empty(t, entries)
}

func TestPing_NotAnHttpUrl(t *testing.T) {
	_context := testutil.MakeContext(t)
	provider := testutil.MakeProvider()
	provider.Url = "journal.example.com/index.php/journal"
	require.Nil(t, _context.Store.SaveProvider(provider))

	result, err := health.NewPinger(_context).Ping(provider)
	require.Nil(t, err)
	assert.Contains(t, result.Error, "is not an http URL")
	stored, err := _context.Store.GetProvider(provider.Uuid)
	require.Nil(t, err)
	assert.Equal(t, constants.ProviderPingError, stored.Status)
}

func TestPing_MissingVersion(t *testing.T) {
	_context := testutil.MakeContext(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<plnplugin><journalInfo><title>T</title></journalInfo></plnplugin>`)
	}))
	defer server.Close()
	provider := saveProvider(t, _context, server)

	result, err := health.NewPinger(_context).Ping(provider)
	require.Nil(t, err)
	assert.Equal(t, "Ping response does not include an application version.", result.Error)
	stored, err := _context.Store.GetProvider(provider.Uuid)
	require.Nil(t, err)
	assert.Equal(t, constants.ProviderPingError, stored.Status)
}

func TestProvidersToPing(t *testing.T) {
	_context := testutil.MakeContext(t)
	plain := testutil.MakeProvider()
	allowed := testutil.MakeProvider()
	denied := testutil.MakeProvider()
	broken := testutil.MakeProvider()
	broken.Status = constants.ProviderPingError
	for _, provider := range []*models.Provider{plain, allowed, denied, broken} {
		require.Nil(t, _context.Store.SaveProvider(provider))
	}
	require.Nil(t, _context.Store.AddListEntry(constants.Whitelist, models.NewListEntry(allowed.Uuid, "")))
	require.Nil(t, _context.Store.AddListEntry(constants.Blacklist, models.NewListEntry(denied.Uuid, "")))

	providers, err := health.ProvidersToPing(_context.Store)
	require.Nil(t, err)
	require.Equal(t, 1, len(providers))
	assert.Equal(t, plain.Uuid, providers[0].Uuid)
}
