package validation

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"github.com/pkp/pln/models"
)

// XmlValidator checks the issue XML inside a harvested deposit.
// Documents that name a schema with xsi:schemaLocation go to
// Schema; everything else goes to Dtd.
type XmlValidator struct {
	Config    *models.Config
	BagReader BagReader
	Dtd       StructuralValidator
	Schema    StructuralValidator
	log       *logging.Logger
}

func NewXmlValidator(config *models.Config, log *logging.Logger) *XmlValidator {
	return &XmlValidator{
		Config:    config,
		BagReader: BaginsReader{},
		Dtd:       NewDtdValidator(),
		Schema:    NewSchemaValidator(),
		log:       log,
	}
}

// ProcessDeposit validates the deposit's issue document. Validation
// problems are written to the deposit's processing log and produce
// a Failure. A bag or file we cannot read is returned as an error.
func (validator *XmlValidator) ProcessDeposit(deposit *models.Deposit) (models.Outcome, error) {
	bagRoot, err := validator.BagReader.ReadBag(validator.Config.HarvestPath(deposit))
	if err != nil {
		return models.Failure(), err
	}
	issuePath, err := IssueFilePath(bagRoot, deposit.DepositUuid)
	if err != nil {
		return models.Failure(), err
	}
	data, err := ioutil.ReadFile(issuePath)
	if err != nil {
		return models.Failure(), errors.Wrapf(err, "Cannot read %s", issuePath)
	}
	mode := Mode(data)
	structural := validator.Dtd
	if mode == ModeSchema {
		structural = validator.Schema
	}
	validationErrors := structural.Validate(data)
	if len(validationErrors) == 0 {
		validator.logInfo("Deposit %s passed %s validation", deposit.DepositUuid, mode)
		return models.Success(), nil
	}
	validator.logInfo("Deposit %s has %d %s validation errors", deposit.DepositUuid,
		len(validationErrors), mode)
	deposit.AddToProcessingLog(Report(validationErrors))
	return models.Failure(), nil
}

func (validator *XmlValidator) logInfo(format string, args ...interface{}) {
	if validator.log != nil {
		validator.log.Info(format, args...)
	}
}

// IssueFilePath returns the path to data/Issue<uuid>.xml under
// bagRoot. Providers do not agree on the case of the uuid, so if
// the exact name is missing we look for a case-insensitive match.
func IssueFilePath(bagRoot, depositUuid string) (string, error) {
	fileName := fmt.Sprintf("Issue%s.xml", depositUuid)
	dataDir := filepath.Join(bagRoot, "data")
	exact := filepath.Join(dataDir, fileName)
	if _, err := os.Stat(exact); err == nil {
		return exact, nil
	}
	entries, err := ioutil.ReadDir(dataDir)
	if err != nil {
		return "", errors.Wrapf(err, "Cannot read payload directory of bag %s", bagRoot)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(entry.Name(), fileName) {
			return filepath.Join(dataDir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("Bag %s has no %s", bagRoot, filepath.Join("data", fileName))
}

const (
	ModeDtd    = "DTD"
	ModeSchema = "schema"
)

// Mode names the validator that handles a document. A document we
// cannot parse as far as its root element goes to the DTD validator,
// which reports the syntax error.
func Mode(data []byte) string {
	attrs, err := rootAttributes(data)
	if err == nil && HasSchemaLocation(attrs) {
		return ModeSchema
	}
	return ModeDtd
}
