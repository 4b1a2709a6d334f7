package network_test

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkp/pln/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, network.UserAgent, r.Header.Get("User-Agent"))
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "hello")
	}))
	defer testServer.Close()

	client := network.NewHttpClient(5*time.Second, false)
	resp, err := network.Get(client, testServer.URL+"/ok")
	require.Nil(t, err)
	body, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	require.Nil(t, err)
	assert.Equal(t, "hello", string(body))

	_, err = network.Get(client, testServer.URL+"/missing")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestNewHttpClient_BlocksLoopback(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "should not get here")
	}))
	defer testServer.Close()

	client := network.NewHttpClient(5*time.Second, true)
	_, err := network.Get(client, testServer.URL)
	assert.NotNil(t, err)
}
