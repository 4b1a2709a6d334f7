package health

import (
	"fmt"
	"html"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/context"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/network"
	"github.com/pkp/pln/util"
	"github.com/pkp/pln/util/storage"
)

// maxPingResponse caps how much of a gateway response we read.
const maxPingResponse = 1 << 20

// Ping result labels for metrics.
const (
	PingSucceeded = "success"
	PingEnrolled  = "enrolled"
	PingFailed    = "error"
)

// Pinger asks a provider's gateway plugin about the provider and
// records the answer.
type Pinger struct {
	Context *context.Context
	Client  *http.Client
	policy  *bluemonday.Policy
}

func NewPinger(_context *context.Context) *Pinger {
	return &Pinger{
		Context: _context,
		Client: network.NewHttpClient(_context.Config.PingTimeoutDuration(),
			_context.Config.BlockPrivateNetworks),
		policy: bluemonday.StrictPolicy(),
	}
}

// Ping contacts the provider's gateway plugin.
//
// A failed ping, or one that does not report an application
// version, sets the provider's status to ping-error and changes
// nothing else. A successful ping updates the provider and marks
// it healthy. If the provider runs at least Config.MinOjsVersion
// and is on neither list, it is added to the allow list in the
// same transaction.
//
// The returned error is only for failures to save the result.
func (pinger *Pinger) Ping(provider *models.Provider) (*models.PingResult, error) {
	log := pinger.Context.MessageLog
	result := pinger.fetch(provider)
	if result.HasError() {
		log.Warning("Ping %s (%s) failed: %s", provider.Uuid, provider.GatewayUrl(), result.Error)
		pinger.Context.Collector.RecordPing(PingFailed)
		_, err := pinger.Context.Store.UpdateProvider(provider.Uuid, func(p *models.Provider) error {
			p.Status = constants.ProviderPingError
			p.UpdatedAt = time.Now().UTC()
			return nil
		})
		return result, err
	}

	enrolled := false
	err := pinger.Context.Store.Update(func(tx *storage.Tx) error {
		stored, err := tx.Provider(provider.Uuid)
		if err != nil {
			return err
		}
		if stored == nil {
			return errors.Wrapf(storage.ErrNotFound, "provider %s", provider.Uuid)
		}
		now := time.Now().UTC()
		stored.Contacted = now
		stored.UpdatedAt = now
		stored.Status = constants.ProviderHealthy
		stored.OjsVersion = result.ApplicationVersion
		stored.TermsAccepted = result.TermsAccepted
		if result.JournalTitle != "" {
			stored.Title = result.JournalTitle
		}
		if err = tx.PutProvider(stored); err != nil {
			return err
		}
		if !util.VersionAtLeast(result.ApplicationVersion, pinger.Context.Config.MinOjsVersion) {
			return nil
		}
		listed, err := tx.IsListed(stored.Uuid)
		if err != nil || listed {
			return err
		}
		enrolled = true
		comment := fmt.Sprintf("%s added by ping.", stored.Url)
		return tx.PutListEntry(constants.Whitelist, models.NewListEntry(stored.Uuid, comment))
	})
	if err != nil {
		return result, err
	}
	log.Info("Ping %s: version %s, plugin %s, %d articles, terms accepted %t",
		provider.Uuid, result.ApplicationVersion, result.PluginVersion,
		result.ArticleCount, result.TermsAccepted)
	if enrolled {
		log.Info("Added %s to the %s", provider.Uuid, constants.Whitelist)
		pinger.Context.Collector.RecordPing(PingEnrolled)
	} else {
		pinger.Context.Collector.RecordPing(PingSucceeded)
	}
	return result, nil
}

func (pinger *Pinger) fetch(provider *models.Provider) *models.PingResult {
	if !util.LooksLikeURL(provider.Url) {
		return models.PingError(fmt.Sprintf("Provider URL %q is not an http URL.", provider.Url))
	}
	resp, err := network.Get(pinger.Client, provider.GatewayUrl())
	if err != nil {
		return models.PingError(pinger.clean(err.Error()))
	}
	defer resp.Body.Close()
	data, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxPingResponse))
	if err != nil {
		return models.PingError(pinger.clean(err.Error()))
	}
	result, err := models.ParsePingResult(data)
	if err != nil {
		return models.PingError("Cannot parse ping response: " + pinger.clean(err.Error()))
	}
	if result.ApplicationVersion == "" {
		return models.PingError("Ping response does not include an application version.")
	}
	result.JournalTitle = pinger.clean(result.JournalTitle)
	return result
}

// clean strips markup from text a provider sent us.
func (pinger *Pinger) clean(text string) string {
	return strings.TrimSpace(html.UnescapeString(pinger.policy.Sanitize(text)))
}

// ProvidersToPing returns the providers a bulk ping should contact:
// those on neither list whose last ping did not fail.
func ProvidersToPing(store *storage.BoltDB) ([]*models.Provider, error) {
	providers, err := store.Providers()
	if err != nil {
		return nil, err
	}
	selected := make([]*models.Provider, 0, len(providers))
	for _, provider := range providers {
		if provider.Status == constants.ProviderPingError {
			continue
		}
		listed, err := store.IsListed(provider.Uuid)
		if err != nil {
			return nil, err
		}
		if !listed {
			selected = append(selected, provider)
		}
	}
	return selected, nil
}

// PingAll pings each provider in turn and returns the number that
// answered.
func (pinger *Pinger) PingAll(providers []*models.Provider) (int, error) {
	answered := 0
	for _, provider := range providers {
		result, err := pinger.Ping(provider)
		if err != nil {
			return answered, err
		}
		if !result.HasError() {
			answered++
		}
	}
	return answered, nil
}
