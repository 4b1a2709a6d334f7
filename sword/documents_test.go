package sword_test

import (
	"encoding/xml"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/sword"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const entryTemplate = `<?xml version="1.0" encoding="utf-8"?>
<entry xmlns="http://www.w3.org/2005/Atom" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:pkp="http://pkp.sfu.ca/SWORD">
  <email>editor@example.com</email>
  <title>Journal of Things</title>
  <pkp:journal_url>%s</pkp:journal_url>
  <pkp:publisherName>Things Press</pkp:publisherName>
  <pkp:publisherUrl>http://press.example.com</pkp:publisherUrl>
  <pkp:issn>1234-5678</pkp:issn>
  <id>urn:uuid:%s</id>
  <updated>2016-04-22T12:35:48Z</updated>
  <pkp:content size="%d" volume="2" issue="4" pubdate="2016-04-22" checksumType="SHA-1" checksumValue="ABCDEF0123456789ABCDEF0123456789ABCDEF01">%s</pkp:content>
</entry>`

func entryXml(journalUrl, depositUuid string, sizeKb int, contentUrl string) []byte {
	return []byte(fmt.Sprintf(entryTemplate, journalUrl, depositUuid, sizeKb, contentUrl))
}

func TestParseDepositRequest(t *testing.T) {
	body := entryXml("http://journal.example.com/index.php/things",
		"c0a65967-32bd-4ee8-96de-c469743e563a", 1234, "http://journal.example.com/deposit.zip")
	request, err := sword.ParseDepositRequest(body)
	require.Nil(t, err)
	assert.Equal(t, "C0A65967-32BD-4EE8-96DE-C469743E563A", request.DepositUuid)
	assert.Equal(t, "http://journal.example.com/index.php/things", request.JournalUrl)
	assert.Equal(t, "Journal of Things", request.Title)
	assert.Equal(t, "editor@example.com", request.Email)
	assert.Equal(t, "Things Press", request.PublisherName)
	assert.Equal(t, "1234-5678", request.Issn)
	assert.Equal(t, "http://journal.example.com/deposit.zip", request.ContentUrl)
	assert.Equal(t, int64(1234000), request.Size)
	assert.Equal(t, "2", request.Volume)
	assert.Equal(t, "4", request.Issue)
	assert.Equal(t, 2016, request.PubDate.Year())
	assert.Equal(t, constants.AlgSha1, request.ChecksumType)
	assert.Equal(t, "abcdef0123456789abcdef0123456789abcdef01", request.ChecksumValue)
}

func TestParseDepositRequest_Errors(t *testing.T) {
	_, err := sword.ParseDepositRequest([]byte("<entry><unclosed></entry>"))
	assert.Equal(t, sword.ErrBadRequest, errors.Cause(err))

	_, err = sword.ParseDepositRequest([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"/>`))
	assert.Equal(t, sword.ErrBadRequest, errors.Cause(err))

	body := `<entry xmlns="http://www.w3.org/2005/Atom" xmlns:pkp="http://pkp.sfu.ca/SWORD">
  <pkp:content size="lots">http://example.com/x.zip</pkp:content></entry>`
	_, err = sword.ParseDepositRequest([]byte(body))
	assert.Equal(t, sword.ErrBadRequest, errors.Cause(err))
	assert.Equal(t, 400, sword.StatusFor(err))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, 400, sword.StatusFor(sword.ErrNotFound))
	assert.Equal(t, 400, sword.StatusFor(errors.Wrap(sword.ErrOwnershipMismatch, "deposit")))
	assert.Equal(t, 400, sword.StatusFor(sword.ErrAccessDenied))
	assert.Equal(t, 500, sword.StatusFor(errors.New("disk on fire")))
}

func TestNewStatement(t *testing.T) {
	deposit := models.NewDeposit("prov-1", "dep-1")
	deposit.Url = "http://example.com/dep-1.zip"
	statement := sword.NewStatement(deposit)
	assert.Equal(t, constants.StateDepositedByJournal, statement.ProcessingState())
	assert.Equal(t, constants.PlnStateInProgress, statement.PlnState())
	assert.Equal(t, "urn:uuid:DEP-1", statement.Entry.Id)
	assert.Equal(t, "", statement.Entry.DepositedOn)

	deposit.State = constants.StateComplete
	deposit.PlnState = constants.PlnStateAgreement
	require.Nil(t, deposit.MarkDeposited(time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC)))
	statement = sword.NewStatement(deposit)
	assert.Equal(t, constants.ReportedDeposited, statement.ProcessingState())
	assert.Equal(t, constants.PlnStateAgreement, statement.PlnState())
	assert.Equal(t, "2017-03-01T00:00:00Z", statement.Entry.DepositedOn)

	data, err := xml.Marshal(statement)
	require.Nil(t, err)
	assert.Contains(t, string(data), `<atom:feed xmlns:atom="http://www.w3.org/2005/Atom"`)
	assert.Contains(t, string(data), `term="deposited"`)
	assert.Contains(t, string(data), `src="http://example.com/dep-1.zip"`)
}

func TestNewStatement_Failed(t *testing.T) {
	deposit := models.NewDeposit("prov-1", "dep-1")
	deposit.State = constants.StateValidateError
	statement := sword.NewStatement(deposit)
	assert.Equal(t, constants.StateValidateError, statement.ProcessingState())
	assert.Equal(t, constants.PlnStateFailed, statement.PlnState())
}
