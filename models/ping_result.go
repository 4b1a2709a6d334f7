package models

import (
	"encoding/xml"
	"strings"
)

// PingResult is what a provider's gateway plugin tells us about
// itself. A failed ping carries only Error.
type PingResult struct {
	ApplicationVersion string
	PluginVersion      string
	JournalTitle       string
	ArticleCount       int
	TermsAccepted      bool
	Error              string
}

// pingDocument mirrors the gateway plugin's XML response:
//
//	<plnplugin>
//	  <ojsInfo><release>3.1.2.1</release></ojsInfo>
//	  <pluginInfo><release>1.0.0</release></pluginInfo>
//	  <journalInfo><title>...</title><articles count="12">...</articles></journalInfo>
//	  <terms termsAccepted="yes">...</terms>
//	</plnplugin>
type pingDocument struct {
	XMLName            xml.Name `xml:"plnplugin"`
	ApplicationVersion string   `xml:"ojsInfo>release"`
	PluginVersion      string   `xml:"pluginInfo>release"`
	JournalTitle       string   `xml:"journalInfo>title"`
	Articles           struct {
		Count int `xml:"count,attr"`
	} `xml:"journalInfo>articles"`
	Terms struct {
		Accepted string `xml:"termsAccepted,attr"`
	} `xml:"terms"`
}

// ParsePingResult parses a gateway plugin response.
func ParsePingResult(data []byte) (*PingResult, error) {
	doc := &pingDocument{}
	if err := xml.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	return &PingResult{
		ApplicationVersion: strings.TrimSpace(doc.ApplicationVersion),
		PluginVersion:      strings.TrimSpace(doc.PluginVersion),
		JournalTitle:       strings.TrimSpace(doc.JournalTitle),
		ArticleCount:       doc.Articles.Count,
		TermsAccepted:      strings.ToLower(strings.TrimSpace(doc.Terms.Accepted)) == "yes",
	}, nil
}

// PingError returns a result that carries only an error.
func PingError(message string) *PingResult {
	return &PingResult{Error: message}
}

func (result *PingResult) HasError() bool {
	return result.Error != ""
}
