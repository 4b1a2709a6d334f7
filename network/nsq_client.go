package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/nsqio/nsq/nsqd"
	"github.com/pkg/errors"
)

// NSQStats contains info about the status of NSQ and its topics
// and queues. This info comes from a GET call to the /stats endpoint.
type NSQStats struct {
	StatusCode int          `json:"status_code"`
	StatusText string       `json:"status_txt"`
	Data       NSQStatsData `json:"data"`
}

// NSQStats data contains the important info returned by a call
// to NSQ's /stats endpoint, including the number of items in each
// topic and queue.
type NSQStatsData struct {
	Version string            `json:"version"`
	Health  string            `json:"health"`
	Topics  []nsqd.TopicStats `json:"topics"`
}

// TopicDepth returns the number of messages waiting in topic, or
// -1 if nsqd does not know the topic.
func (stats *NSQStats) TopicDepth(topic string) int64 {
	for _, topicStats := range stats.Data.Topics {
		if topicStats.TopicName == topic {
			return topicStats.Depth
		}
	}
	return -1
}

type NSQClient struct {
	URL        string
	httpClient *http.Client
}

// NewNSQClient returns a client for the nsqd HTTP API at
// nsqdHttpAddress (Config.NsqdHttpAddress, usually port 4151). The
// pipeline publishes the uuids of deposits ready for the next stage
// through it. Consumers read from nsqd directly.
func NewNSQClient(nsqdHttpAddress string) *NSQClient {
	return &NSQClient{
		URL:        nsqdHttpAddress,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Enqueue posts a message to an NSQ topic. For stage topics, the
// message is a deposit uuid.
func (client *NSQClient) Enqueue(topic, message string) error {
	pubUrl := fmt.Sprintf("%s/pub?topic=%s", client.URL, url.QueryEscape(topic))
	resp, err := client.httpClient.Post(pubUrl, "text/plain", bytes.NewBufferString(message))
	if err != nil {
		return errors.Wrapf(err, "Cannot publish to %s", topic)
	}
	// The body must be drained or the connection stays open.
	body, _ := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nsqd returned %d publishing to %s: %s", resp.StatusCode, topic, body)
	}
	return nil
}

// GetStats returns the topic depths and health reported by nsqd.
// The path has no trailing slash; /stats/ is a 404.
func (client *NSQClient) GetStats() (*NSQStats, error) {
	resp, err := client.httpClient.Get(client.URL + "/stats?format=json")
	if err != nil {
		return nil, errors.Wrap(err, "Cannot read nsqd stats")
	}
	body, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NSQ returned status code %d, body: %s",
			resp.StatusCode, body)
	}
	stats := &NSQStats{}
	if err = json.Unmarshal(body, stats); err != nil {
		return nil, errors.Wrap(err, "Cannot parse nsqd stats")
	}
	return stats, nil
}
