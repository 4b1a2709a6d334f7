package onix

import (
	"encoding/xml"
	"io"
	"time"

	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/models"
)

// OnixVersion is the ONIX-PH version of the feed.
const OnixVersion = "0.2"

type header struct {
	XMLName      xml.Name `xml:"Header"`
	SenderName   string   `xml:"Sender>SenderName"`
	SentDateTime string   `xml:"SentDateTime"`
	CompleteFile struct{} `xml:"CompleteFile"`
}

type preservationAgency struct {
	XMLName xml.Name `xml:"PreservationAgency"`
	Name    string   `xml:"PreservationAgencyName"`
}

type holdingsRecord struct {
	XMLName          xml.Name        `xml:"HoldingsRecord"`
	NotificationType string          `xml:"NotificationType"`
	ResourceVersion  resourceVersion `xml:"ResourceVersion"`
}

type resourceVersion struct {
	IdType         string        `xml:"ResourceVersionIdentifier>ResourceVersionIDType"`
	IdValue        string        `xml:"ResourceVersionIdentifier>IDValue"`
	TitleType      string        `xml:"Title>TitleType"`
	TitleText      string        `xml:"Title>TitleText"`
	PublishingRole string        `xml:"Publisher>PublishingRole"`
	PublisherName  string        `xml:"Publisher>PublisherName"`
	OnlinePackage  onlinePackage `xml:"OnlinePackage"`
}

type onlinePackage struct {
	WebsiteRole string          `xml:"Website>WebsiteRole"`
	WebsiteLink string          `xml:"Website>WebsiteLink"`
	Details     []packageDetail `xml:"PackageDetail"`
}

type packageDetail struct {
	DescriptionLevel    string `xml:"Coverage>CoverageDescriptionLevel"`
	SupplementInclusion string `xml:"Coverage>SupplementInclusion"`
	IndexInclusion      string `xml:"Coverage>IndexInclusion"`
	VolumeUnit          string `xml:"Coverage>FixedCoverage>Release>Enumeration>Level1>Unit"`
	Volume              string `xml:"Coverage>FixedCoverage>Release>Enumeration>Level1>Number"`
	IssueUnit           string `xml:"Coverage>FixedCoverage>Release>Enumeration>Level2>Unit"`
	Issue               string `xml:"Coverage>FixedCoverage>Release>Enumeration>Level2>Number"`
	Calendar            string `xml:"Coverage>FixedCoverage>Release>NominalDate>Calendar"`
	DateFormat          string `xml:"Coverage>FixedCoverage>Release>NominalDate>DateFormat"`
	Date                string `xml:"Coverage>FixedCoverage>Release>NominalDate>Date"`
	StatusCode          string `xml:"PreservationStatus>PreservationStatusCode"`
	DateOfStatus        string `xml:"PreservationStatus>DateOfStatus"`
	VerificationStatus  string `xml:"VerificationStatus"`
}

func newHoldingsRecord(provider *models.Provider, deposits []*models.Deposit, now time.Time) *holdingsRecord {
	record := &holdingsRecord{
		NotificationType: "00",
		ResourceVersion: resourceVersion{
			IdType:         "07",
			IdValue:        provider.Issn,
			TitleType:      "01",
			TitleText:      provider.Title,
			PublishingRole: "01",
			PublisherName:  provider.PublisherName,
			OnlinePackage: onlinePackage{
				WebsiteRole: "05",
				WebsiteLink: provider.Url,
			},
		},
	}
	for _, deposit := range deposits {
		statusDate := now
		if deposit.IsDeposited() {
			statusDate = deposit.DepositDate
		}
		record.ResourceVersion.OnlinePackage.Details = append(record.ResourceVersion.OnlinePackage.Details,
			packageDetail{
				DescriptionLevel:    "03",
				SupplementInclusion: "04",
				IndexInclusion:      "04",
				VolumeUnit:          "Volume",
				Volume:              deposit.Volume,
				IssueUnit:           "Issue",
				Issue:               deposit.Issue,
				Calendar:            "00",
				DateFormat:          "00",
				Date:                formatDate(deposit.PubDate, constants.OnixDateFormat),
				StatusCode:          "05",
				DateOfStatus:        formatDate(statusDate, constants.OnixDateFormat),
				VerificationStatus:  "01",
			})
	}
	return record
}

// WriteXml writes an ONIX-PH holdings feed with one holdings record
// per provider that has sent deposits. Returns the number of
// providers written.
func WriteXml(w io.Writer, source Source, now time.Time) (int, error) {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return 0, err
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", " ")
	root := xml.StartElement{
		Name: xml.Name{Space: constants.NamespaceOnix, Local: "ONIXPreservationHoldings"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "version"}, Value: OnixVersion}},
	}
	list := xml.StartElement{Name: xml.Name{Local: "HoldingsList"}}
	if err := encoder.EncodeToken(root); err != nil {
		return 0, err
	}
	err := encoder.Encode(&header{
		SenderName:   constants.SenderName,
		SentDateTime: now.Format(constants.OnixDateFormat),
	})
	if err != nil {
		return 0, err
	}
	if err = encoder.EncodeToken(list); err != nil {
		return 0, err
	}
	if err = encoder.Encode(&preservationAgency{Name: constants.SenderName}); err != nil {
		return 0, err
	}

	count := 0
	err = source.ForEachProviderDeposits(func(provider *models.Provider, deposits []*models.Deposit) error {
		sent := sentDeposits(deposits)
		if len(sent) == 0 {
			return nil
		}
		if err := encoder.Encode(newHoldingsRecord(provider, sent, now)); err != nil {
			return err
		}
		count++
		if count%BatchSize == 0 {
			return encoder.Flush()
		}
		return nil
	})
	if err != nil {
		return count, err
	}
	if err = encoder.EncodeToken(list.End()); err != nil {
		return count, err
	}
	if err = encoder.EncodeToken(root.End()); err != nil {
		return count, err
	}
	return count, encoder.Flush()
}
