package testutil

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/APTrust/bagins"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/tarfile"
)

// DtdIssueXml is a minimal valid OJS 2 native issue export.
const DtdIssueXml = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE issue PUBLIC "-//PKP//OJS Articles and Issues XML//EN" "http://pkp.sfu.ca/ojs/dtds/2.4.8/native.dtd">
<issue published="true" current="false">
  <title locale="en_US">Vol 1 No 1</title>
  <volume>1</volume>
  <number>1</number>
  <year>2020</year>
  <section>
    <title locale="en_US">Articles</title>
    <article>
      <title locale="en_US">On Preservation</title>
    </article>
  </section>
</issue>
`

// SchemaIssueXml is a minimal valid OJS 3 native issue export.
const SchemaIssueXml = `<?xml version="1.0" encoding="UTF-8"?>
<issue xmlns="http://pkp.sfu.ca" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
    xsi:schemaLocation="http://pkp.sfu.ca native.xsd" published="1" current="0">
  <id type="internal" advice="ignore">12</id>
  <issue_identification>
    <volume>2</volume>
    <number>3</number>
    <year>2021</year>
  </issue_identification>
  <articles/>
</issue>
`

// MakeHarvestedBag writes a bag containing data/Issue<uuid>.xml
// to the deposit's harvest path, as if the harvester had just
// unpacked it. Returns the bag root.
func MakeHarvestedBag(t testing.TB, config *models.Config, deposit *models.Deposit, issueXml string) string {
	harvestPath := config.HarvestPath(deposit)
	location := filepath.Dir(harvestPath)
	if err := os.MkdirAll(location, 0755); err != nil {
		t.Fatalf("Cannot create %s: %v", location, err)
	}
	source := filepath.Join(t.TempDir(), "issue.xml")
	if err := ioutil.WriteFile(source, []byte(issueXml), 0644); err != nil {
		t.Fatalf("Cannot write %s: %v", source, err)
	}
	bag, err := bagins.NewBag(location, filepath.Base(harvestPath), []string{"sha256"}, true)
	if err != nil {
		t.Fatalf("Cannot create bag: %v", err)
	}
	if err = bag.AddFile(source, fmt.Sprintf("Issue%s.xml", deposit.DepositUuid)); err != nil {
		t.Fatalf("Cannot add issue file to bag: %v", err)
	}
	if errs := bag.Save(); len(errs) > 0 {
		t.Fatalf("Cannot save bag: %v", errs)
	}
	return harvestPath
}

// MakeDepositPackage builds a bag holding data/Issue<uuid>.xml and
// tars it, the way a provider packages a deposit. Returns the path
// to the tar file.
func MakeDepositPackage(t testing.TB, depositUuid, issueXml string) string {
	dir := t.TempDir()
	source := filepath.Join(dir, "issue.xml")
	if err := ioutil.WriteFile(source, []byte(issueXml), 0644); err != nil {
		t.Fatalf("Cannot write %s: %v", source, err)
	}
	bag, err := bagins.NewBag(dir, depositUuid, []string{"sha1"}, false)
	if err != nil {
		t.Fatalf("Cannot create bag: %v", err)
	}
	if err = bag.AddFile(source, fmt.Sprintf("Issue%s.xml", depositUuid)); err != nil {
		t.Fatalf("Cannot add issue file to bag: %v", err)
	}
	if errs := bag.Save(); len(errs) > 0 {
		t.Fatalf("Cannot save bag: %v", errs)
	}
	tarPath := filepath.Join(dir, depositUuid+".tar")
	writer := tarfile.NewWriter(tarPath)
	if err = writer.Open(); err != nil {
		t.Fatalf("Cannot create %s: %v", tarPath, err)
	}
	if err = writer.AddDirectory(filepath.Join(dir, depositUuid), depositUuid); err != nil {
		t.Fatalf("Cannot tar bag: %v", err)
	}
	if err = writer.Close(); err != nil {
		t.Fatalf("Cannot close %s: %v", tarPath, err)
	}
	return tarPath
}
