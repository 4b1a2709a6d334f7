package network

import (
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
)

// UserAgent identifies the staging server to providers.
const UserAgent = "PKP PLN staging server"

// NewHttpClient returns the client we use to talk to providers for
// pings and harvests. When blockPrivateNetworks is true, the client
// refuses to connect to private, loopback and link-local addresses,
// which keeps a provider from pointing us at our own network.
func NewHttpClient(timeout time.Duration, blockPrivateNetworks bool) *http.Client {
	if !blockPrivateNetworks {
		return &http.Client{Timeout: timeout}
	}
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		Build()
	return safeurl.Client(config).Client
}

// Get fetches url with our user agent. Non-200 responses are
// returned as errors, with the body closed.
func Get(client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(ioutil.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP request to %s returned %d", url, resp.StatusCode)
	}
	return resp, nil
}
