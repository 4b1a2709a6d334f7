// Package onix exports the network's holdings as an ONIX-PH
// preservation holdings feed, in XML or CSV.
package onix

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/util"
)

// BatchSize is the number of providers written between flushes.
const BatchSize = 50

// Source lists every provider with its deposits.
type Source interface {
	ForEachProviderDeposits(fn func(provider *models.Provider, deposits []*models.Deposit) error) error
}

// sentDeposits returns the deposits that have gone to the archive.
func sentDeposits(deposits []*models.Deposit) []*models.Deposit {
	sent := make([]*models.Deposit, 0, len(deposits))
	for _, deposit := range deposits {
		if util.StringListContains(constants.SentStates, deposit.State) {
			sent = append(sent, deposit)
		}
	}
	return sent
}

func formatDate(date time.Time, layout string) string {
	if date.IsZero() {
		return ""
	}
	return date.UTC().Format(layout)
}

// WriteFile writes the feed to each path, choosing the format from
// the file extension: .xml or .csv.
func WriteFile(source Source, log *logging.Logger, paths ...string) error {
	now := time.Now().UTC()
	for _, path := range paths {
		var write func(file *os.File) (int, error)
		switch strings.ToLower(filepath.Ext(path)) {
		case ".xml":
			write = func(file *os.File) (int, error) { return WriteXml(file, source, now) }
		case ".csv":
			write = func(file *os.File) (int, error) { return WriteCsv(file, source, now) }
		default:
			return errors.Errorf("Cannot generate %s ONIX format.", filepath.Ext(path))
		}
		log.Info("Writing %s", path)
		file, err := os.Create(path)
		if err != nil {
			return errors.Wrapf(err, "Cannot create %s", path)
		}
		count, err := write(file)
		closeErr := file.Close()
		if err != nil {
			return errors.Wrapf(err, "Cannot write %s", path)
		}
		if closeErr != nil {
			return errors.Wrapf(closeErr, "Cannot close %s", path)
		}
		log.Info("Wrote %d providers to %s", count, path)
	}
	return nil
}
