package network_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/pkg/errors"
	"github.com/pkp/pln/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeArchive answers HEAD requests the way an S3-compatible
// server does for one known object.
func fakeArchive() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead && r.URL.Path == "/lockss/1/P/D.tar" {
			w.Header().Set("Content-Length", "1234")
			w.Header().Set("ETag", `"abc123"`)
			w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
			w.Header().Set("Content-Type", "application/x-tar")
			w.WriteHeader(http.StatusOK)
			return
		}
		if _, ok := r.URL.Query()["location"]; ok {
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>`+
				`<LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/"></LocationConstraint>`)
			return
		}
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code></Error>`)
	}))
}

func TestArchiveClient_Stat(t *testing.T) {
	server := fakeArchive()
	defer server.Close()
	serverUrl, err := url.Parse(server.URL)
	require.Nil(t, err)

	client, err := network.NewArchiveClient(serverUrl.Host, "key", "secret", "lockss", false)
	require.Nil(t, err)

	object, err := client.Stat("1/P/D.tar")
	require.Nil(t, err)
	assert.Equal(t, int64(1234), object.Size)
	assert.Equal(t, "abc123", object.ETag)

	_, err = client.Stat("1/P/missing.tar")
	require.NotNil(t, err)
	assert.Equal(t, network.ErrArchiveObjectNotFound, errors.Cause(err))
}
