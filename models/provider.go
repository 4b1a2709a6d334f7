package models

import (
	"strings"
	"time"

	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/util"
)

// Provider is a journal (or other content source) that sends
// deposits to the network. Providers are identified by the uuid
// they send us, stored upper-cased. We never delete providers;
// Status tracks whether they are still around.
type Provider struct {
	Uuid          string    `json:"uuid"`
	Url           string    `json:"url"`
	Title         string    `json:"title"`
	Issn          string    `json:"issn"`
	PublisherName string    `json:"publisher_name"`
	PublisherUrl  string    `json:"publisher_url"`
	Email         string    `json:"email"`
	Status        string    `json:"status"`
	Contacted     time.Time `json:"contacted"`
	Notified      time.Time `json:"notified"`
	TermsAccepted bool      `json:"terms_accepted"`
	OjsVersion    string    `json:"ojs_version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewProvider returns a provider with the placeholder values we use
// until the provider tells us more about itself.
func NewProvider(uuid, url string) *Provider {
	now := time.Now().UTC()
	return &Provider{
		Uuid:      util.NormalizeUuid(uuid),
		Url:       url,
		Title:     "unknown",
		Issn:      "unknown",
		Email:     "unknown@unknown.com",
		Status:    constants.ProviderNew,
		Contacted: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GatewayUrl is the URL we ping to learn about the provider.
func (provider *Provider) GatewayUrl() string {
	return strings.TrimRight(provider.Url, "/") + constants.PingPath
}

// Contact records that the provider reached us from url. If the
// URL changed, this updates it and returns the old one so the
// caller can log the change. A provider that has been seen
// before becomes healthy again.
func (provider *Provider) Contact(url string, now time.Time) (oldUrl string, urlChanged bool) {
	provider.Contacted = now
	provider.UpdatedAt = now
	if url != "" && provider.Url != url {
		oldUrl = provider.Url
		provider.Url = url
		urlChanged = true
	}
	if provider.Status != constants.ProviderNew {
		provider.Status = constants.ProviderHealthy
	}
	return oldUrl, urlChanged
}

// IsSilentSince returns true if we have not heard from the provider
// since cutoff.
func (provider *Provider) IsSilentSince(cutoff time.Time) bool {
	return provider.Contacted.Before(cutoff)
}
