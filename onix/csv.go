package onix

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/models"
)

var csvColumns = []string{
	"ISSN",
	"Title",
	"Publisher",
	"Url",
	"Vol",
	"No",
	"Published",
	"Deposited",
}

// WriteCsv writes one row per sent deposit that the archive has
// confirmed, grouped by provider. Returns the number of providers
// written.
func WriteCsv(w io.Writer, source Source, now time.Time) (int, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Generated", now.Format(constants.IsoDateFormat)}); err != nil {
		return 0, err
	}
	if err := writer.Write(csvColumns); err != nil {
		return 0, err
	}
	count := 0
	err := source.ForEachProviderDeposits(func(provider *models.Provider, deposits []*models.Deposit) error {
		written := 0
		for _, deposit := range sentDeposits(deposits) {
			if !deposit.IsDeposited() {
				continue
			}
			err := writer.Write([]string{
				provider.Issn,
				provider.Title,
				provider.PublisherName,
				provider.Url,
				deposit.Volume,
				deposit.Issue,
				formatDate(deposit.PubDate, constants.IsoDateFormat),
				formatDate(deposit.DepositDate, constants.IsoDateFormat),
			})
			if err != nil {
				return err
			}
			written++
		}
		if written == 0 {
			return nil
		}
		count++
		if count%BatchSize == 0 {
			writer.Flush()
			return writer.Error()
		}
		return nil
	})
	if err != nil {
		return count, err
	}
	writer.Flush()
	return count, writer.Error()
}
