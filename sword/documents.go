package sword

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/util"
)

// SwordVersion is the protocol version we speak.
const SwordVersion = "2.0"

// Category schemes used in statements.
const (
	SchemeState      = constants.NamespaceSword + "terms/state"
	SchemeProcessing = constants.NamespacePkp + "/terms/processing"
)

// ServiceDocument tells a provider whether we accept its deposits,
// which terms it must accept and where to send deposits.
type ServiceDocument struct {
	XMLName            xml.Name      `xml:"service"`
	Xmlns              string        `xml:"xmlns,attr"`
	XmlnsDcTerms       string        `xml:"xmlns:dcterms,attr"`
	XmlnsSword         string        `xml:"xmlns:sword,attr"`
	XmlnsAtom          string        `xml:"xmlns:atom,attr"`
	XmlnsLom           string        `xml:"xmlns:lom,attr"`
	XmlnsPkp           string        `xml:"xmlns:pkp,attr"`
	Version            string        `xml:"sword:version"`
	MaxUploadSize      int64         `xml:"sword:maxUploadSize"`
	UploadChecksumType string        `xml:"lom:uploadChecksumType"`
	Accepting          AcceptingInfo `xml:"pkp:pln_accepting"`
	TermsOfUse         TermsOfUse    `xml:"pkp:terms_of_use"`
	Workspace          Workspace     `xml:"workspace"`
}

// AcceptingInfo is "Yes" or "No", with the network message for the
// provider.
type AcceptingInfo struct {
	IsAccepting string `xml:"is_accepting,attr"`
	Message     string `xml:",chardata"`
}

type TermsOfUse struct {
	Updated string      `xml:"updated,attr,omitempty"`
	Terms   []TermEntry `xml:"term"`
}

// TermEntry is one term, in an element named by the term's key code.
type TermEntry struct {
	XMLName xml.Name
	Updated string `xml:"updated,attr"`
	Content string `xml:",chardata"`
}

type Workspace struct {
	Title      string     `xml:"atom:title"`
	Collection Collection `xml:"collection"`
}

type Collection struct {
	Href      string `xml:"href,attr"`
	Title     string `xml:"atom:title"`
	Accept    string `xml:"accept"`
	Mediation string `xml:"sword:mediation"`
	Packaging string `xml:"sword:acceptPackaging"`
}

// IsAccepting returns true if the document says deposits are
// accepted.
func (doc *ServiceDocument) IsAccepting() bool {
	return doc.Accepting.IsAccepting == "Yes"
}

func newServiceDocument(config *models.Config, accepting bool, message, colIri string, terms []*models.TermOfUse, termsUpdated time.Time) *ServiceDocument {
	doc := &ServiceDocument{
		Xmlns:              constants.NamespaceApp,
		XmlnsDcTerms:       constants.NamespaceDcTerms,
		XmlnsSword:         constants.NamespaceSword,
		XmlnsAtom:          constants.NamespaceAtom,
		XmlnsLom:           constants.NamespaceLom,
		XmlnsPkp:           constants.NamespacePkp,
		Version:            SwordVersion,
		MaxUploadSize:      config.MaxUploadSize / 1000,
		UploadChecksumType: config.UploadChecksumType,
		Accepting: AcceptingInfo{
			IsAccepting: "No",
			Message:     message,
		},
		Workspace: Workspace{
			Title: "PKP PLN deposit",
			Collection: Collection{
				Href:      colIri,
				Title:     "PKP PLN deposit",
				Accept:    "application/atom+xml;type=entry",
				Mediation: "true",
				Packaging: "http://purl.org/net/sword/package/SimpleZip",
			},
		},
	}
	if accepting {
		doc.Accepting.IsAccepting = "Yes"
	}
	if !termsUpdated.IsZero() {
		doc.TermsOfUse.Updated = termsUpdated.Format(time.RFC3339)
	}
	for _, term := range terms {
		doc.TermsOfUse.Terms = append(doc.TermsOfUse.Terms, TermEntry{
			XMLName: xml.Name{Local: term.KeyCode},
			Updated: term.Updated.Format(time.RFC3339),
			Content: term.Content,
		})
	}
	return doc
}

// Statement reports a deposit's state to its provider.
type Statement struct {
	XMLName    xml.Name       `xml:"atom:feed"`
	XmlnsAtom  string         `xml:"xmlns:atom,attr"`
	XmlnsSword string         `xml:"xmlns:sword,attr"`
	Categories []Category     `xml:"atom:category"`
	Entry      StatementEntry `xml:"atom:entry"`
}

type Category struct {
	Scheme      string `xml:"scheme,attr"`
	Term        string `xml:"term,attr"`
	Label       string `xml:"label,attr"`
	Description string `xml:",chardata"`
}

type StatementEntry struct {
	Id          string           `xml:"atom:id"`
	Content     StatementContent `xml:"atom:content"`
	Updated     string           `xml:"atom:updated"`
	DepositedOn string           `xml:"sword:depositedOn,omitempty"`
}

type StatementContent struct {
	Type string `xml:"type,attr"`
	Src  string `xml:"src,attr"`
}

// PlnState is the preservation state reported in the statement.
func (statement *Statement) PlnState() string {
	return statement.term(SchemeState)
}

// ProcessingState is the processing state reported in the
// statement.
func (statement *Statement) ProcessingState() string {
	return statement.term(SchemeProcessing)
}

func (statement *Statement) term(scheme string) string {
	for _, category := range statement.Categories {
		if category.Scheme == scheme {
			return category.Term
		}
	}
	return ""
}

// NewStatement describes deposit.
func NewStatement(deposit *models.Deposit) *Statement {
	plnState := deposit.ReportedPlnState()
	statement := &Statement{
		XmlnsAtom:  constants.NamespaceAtom,
		XmlnsSword: constants.NamespaceSword,
		Categories: []Category{
			{
				Scheme:      SchemeState,
				Term:        plnState,
				Label:       "State",
				Description: models.PlnStateDescription(plnState),
			},
			{
				Scheme:      SchemeProcessing,
				Term:        deposit.ReportedState(),
				Label:       "Processing State",
				Description: "Processing state of the deposit in the staging server.",
			},
		},
		Entry: StatementEntry{
			Id: "urn:uuid:" + deposit.DepositUuid,
			Content: StatementContent{
				Type: "application/zip",
				Src:  deposit.Url,
			},
			Updated: deposit.UpdatedAt.Format(time.RFC3339),
		},
	}
	if deposit.IsDeposited() {
		statement.Entry.DepositedOn = deposit.DepositDate.Format(time.RFC3339)
	}
	return statement
}

// DepositRequest is what a provider tells us about a new or
// changed deposit, read from an Atom entry.
type DepositRequest struct {
	Email         string `validate:"omitempty,email"`
	Title         string
	JournalUrl    string `validate:"required,url"`
	PublisherName string
	PublisherUrl  string `validate:"omitempty,url"`
	Issn          string
	DepositUuid   string `validate:"required,pln_uuid"`
	ContentUrl    string `validate:"required,url"`
	// Size in bytes. Providers send kilobytes.
	Size          int64  `validate:"gte=0"`
	Volume        string
	Issue         string
	PubDate       time.Time
	ChecksumType  string `validate:"required,oneof=md5 sha1 sha256"`
	ChecksumValue string `validate:"required,hexadecimal"`
}

type atomEntry struct {
	XMLName       xml.Name   `xml:"http://www.w3.org/2005/Atom entry"`
	Email         string     `xml:"http://www.w3.org/2005/Atom email"`
	Title         string     `xml:"http://www.w3.org/2005/Atom title"`
	Id            string     `xml:"http://www.w3.org/2005/Atom id"`
	JournalUrl    string     `xml:"http://pkp.sfu.ca/SWORD journal_url"`
	PublisherName string     `xml:"http://pkp.sfu.ca/SWORD publisherName"`
	PublisherUrl  string     `xml:"http://pkp.sfu.ca/SWORD publisherUrl"`
	Issn          string     `xml:"http://pkp.sfu.ca/SWORD issn"`
	Content       pkpContent `xml:"http://pkp.sfu.ca/SWORD content"`
}

type pkpContent struct {
	Size          string `xml:"size,attr"`
	Volume        string `xml:"volume,attr"`
	Issue         string `xml:"issue,attr"`
	PubDate       string `xml:"pubdate,attr"`
	ChecksumType  string `xml:"checksumType,attr"`
	ChecksumValue string `xml:"checksumValue,attr"`
	Url           string `xml:",chardata"`
}

// ParseDepositRequest reads a deposit request from an Atom entry.
// It checks syntax only; Service validates the values.
func ParseDepositRequest(body []byte) (*DepositRequest, error) {
	entry := &atomEntry{}
	if err := xml.Unmarshal(body, entry); err != nil {
		return nil, newError(ErrBadRequest, "Cannot parse deposit request: %v", err)
	}
	request := &DepositRequest{
		Email:         strings.TrimSpace(entry.Email),
		Title:         strings.TrimSpace(entry.Title),
		JournalUrl:    strings.TrimSpace(entry.JournalUrl),
		PublisherName: strings.TrimSpace(entry.PublisherName),
		PublisherUrl:  strings.TrimSpace(entry.PublisherUrl),
		Issn:          strings.TrimSpace(entry.Issn),
		DepositUuid:   util.NormalizeUuid(strings.TrimPrefix(strings.TrimSpace(entry.Id), "urn:uuid:")),
		ContentUrl:    strings.TrimSpace(entry.Content.Url),
		Volume:        strings.TrimSpace(entry.Content.Volume),
		Issue:         strings.TrimSpace(entry.Content.Issue),
		ChecksumType:  normalizeChecksumType(entry.Content.ChecksumType),
		ChecksumValue: strings.ToLower(strings.TrimSpace(entry.Content.ChecksumValue)),
	}
	if size := strings.TrimSpace(entry.Content.Size); size != "" {
		kb, err := strconv.ParseInt(size, 10, 64)
		if err != nil {
			return nil, newError(ErrBadRequest, "Deposit size '%s' is not a number.", size)
		}
		request.Size = kb * 1000
	}
	if pubDate := strings.TrimSpace(entry.Content.PubDate); pubDate != "" {
		parsed, err := parseDate(pubDate)
		if err != nil {
			return nil, newError(ErrBadRequest, "Cannot parse publication date '%s'.", pubDate)
		}
		request.PubDate = parsed
	}
	return request, nil
}

// normalizeChecksumType turns "SHA-1" into "sha1" and so on.
func normalizeChecksumType(checksumType string) string {
	return strings.Replace(strings.ToLower(strings.TrimSpace(checksumType)), "-", "", -1)
}

func parseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return parsed.UTC(), nil
	}
	return time.Parse(constants.IsoDateFormat, value)
}
