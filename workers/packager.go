package workers

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/APTrust/bagins"
	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/context"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/tarfile"
	"github.com/pkp/pln/util/fileutil"
)

// Packager rebuilds a validated deposit as a new bag carrying the
// network's own bag-info.txt, then tars it for the depositor.
type Packager struct {
	Context *context.Context
}

func NewPackager(_context *context.Context) *Packager {
	return &Packager{Context: _context}
}

func (packager *Packager) ProcessDeposit(deposit *models.Deposit) (models.Outcome, error) {
	config := packager.Context.Config
	harvestedRoot, err := fileutil.FindBagRoot(config.HarvestPath(deposit))
	if err != nil {
		return models.Failure(), errors.Wrap(err, "Cannot find harvested bag")
	}
	bagPath := config.ProcessingPath(deposit)
	if err = fileutil.ClearDirectory(bagPath); err != nil {
		return models.Failure(), errors.Wrapf(err, "Cannot clear %s", bagPath)
	}
	// bagins wants the parent directory to exist.
	if err = os.MkdirAll(filepath.Dir(bagPath), 0755); err != nil {
		return models.Failure(), err
	}
	if err = packager.buildBag(deposit, harvestedRoot, bagPath); err != nil {
		return models.Failure(), err
	}

	tarPath := bagPath + ".tar"
	if err = packager.tarBag(deposit, bagPath, tarPath); err != nil {
		return models.Failure(), err
	}
	os.RemoveAll(bagPath)

	checksum, err := fileutil.CalculateChecksum(tarPath, constants.AlgSha256)
	if err != nil {
		return models.Failure(), err
	}
	info, err := os.Stat(tarPath)
	if err != nil {
		return models.Failure(), err
	}
	deposit.PackagePath = tarPath
	deposit.PackageSize = info.Size()
	deposit.PackageChecksum = checksum
	packager.Context.MessageLog.Info("Packaged %s: %s (%d bytes)", deposit.DepositUuid, tarPath, info.Size())
	return models.Success(), nil
}

func (packager *Packager) buildBag(deposit *models.Deposit, harvestedRoot, bagPath string) error {
	bag, err := bagins.NewBag(filepath.Dir(bagPath), filepath.Base(bagPath), []string{constants.AlgSha256}, true)
	if err != nil {
		return errors.Wrap(err, "Cannot create bag")
	}
	payloadDir := filepath.Join(harvestedRoot, "data")
	files, err := fileutil.RecursiveFileList(payloadDir)
	if err != nil {
		return errors.Wrapf(err, "Cannot list payload of %s", harvestedRoot)
	}
	for _, file := range files {
		relPath, err := filepath.Rel(payloadDir, file)
		if err != nil {
			return err
		}
		if err = bag.AddFile(file, relPath); err != nil {
			return errors.Wrapf(err, "Cannot add %s to bag", relPath)
		}
	}
	if err = bag.AddTagfile("bag-info.txt"); err != nil {
		return err
	}
	bagInfo, err := bag.TagFile("bag-info.txt")
	if err != nil {
		return err
	}
	for _, field := range packager.bagInfo(deposit) {
		bagInfo.Data.AddField(*bagins.NewTagField(field[0], field[1]))
	}
	if errs := bag.Save(); len(errs) > 0 {
		return fmt.Errorf("Cannot save bag %s: %v", bagPath, errs)
	}
	return nil
}

func (packager *Packager) bagInfo(deposit *models.Deposit) [][2]string {
	fields := [][2]string{
		{"Source-Organization", constants.SenderName},
		{"Bagging-Date", time.Now().UTC().Format(constants.IsoDateFormat)},
		{"External-Identifier", deposit.DepositUuid},
		{"PKP-PLN-Deposit-UUID", deposit.DepositUuid},
		{"PKP-PLN-Deposit-Received", deposit.CreatedAt.Format(time.RFC3339)},
		{"PKP-PLN-Deposit-Volume", deposit.Volume},
		{"PKP-PLN-Deposit-Issue", deposit.Issue},
		{"PKP-PLN-Deposit-PubDate", deposit.PubDate.Format(constants.IsoDateFormat)},
		{"PKP-PLN-Journal-UUID", deposit.ProviderUuid},
	}
	provider, err := packager.Context.Store.GetProvider(deposit.ProviderUuid)
	if err != nil || provider == nil {
		return fields
	}
	return append(fields,
		[2]string{"PKP-PLN-Journal-Title", provider.Title},
		[2]string{"PKP-PLN-Journal-ISSN", provider.Issn},
		[2]string{"PKP-PLN-Journal-URL", provider.Url},
		[2]string{"PKP-PLN-Journal-Email", provider.Email},
		[2]string{"PKP-PLN-Publisher-Name", provider.PublisherName},
		[2]string{"PKP-PLN-Publisher-URL", provider.PublisherUrl},
	)
}

func (packager *Packager) tarBag(deposit *models.Deposit, bagPath, tarPath string) error {
	writer := tarfile.NewWriter(tarPath)
	if err := writer.Open(); err != nil {
		return err
	}
	defer writer.Close()
	if err := writer.AddDirectory(bagPath, deposit.DepositUuid); err != nil {
		return errors.Wrapf(err, "Cannot tar %s", bagPath)
	}
	return writer.Close()
}
