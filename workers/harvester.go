package workers

import (
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/context"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/network"
	"github.com/pkp/pln/tarfile"
	"github.com/pkp/pln/util/fileutil"
)

// Harvester downloads a deposit's package from the provider,
// checks it against the checksum the provider declared, and unpacks
// it into the deposit's harvest directory.
type Harvester struct {
	Context *context.Context
	Client  *http.Client
}

func NewHarvester(_context *context.Context) *Harvester {
	return &Harvester{
		Context: _context,
		Client: network.NewHttpClient(_context.Config.HarvestTimeoutDuration(),
			_context.Config.BlockPrivateNetworks),
	}
}

// ProcessDeposit harvests one deposit. A deposit that has used up
// its harvest attempts is put on hold.
func (harvester *Harvester) ProcessDeposit(deposit *models.Deposit) (models.Outcome, error) {
	maxAttempts := harvester.Context.Config.MaxHarvestAttempts
	if maxAttempts > 0 && deposit.HarvestAttempts >= maxAttempts {
		deposit.AddToProcessingLog(fmt.Sprintf("Deposit harvest gave up after %d attempts.", deposit.HarvestAttempts))
		return models.Hold(constants.StateHeld), nil
	}
	deposit.HarvestAttempts++

	tempFile, err := ioutil.TempFile(harvester.Context.Config.HarvestDirectory, "harvest-")
	if err != nil {
		return models.Failure(), errors.Wrap(err, "Cannot create download file")
	}
	defer os.Remove(tempFile.Name())

	digest, size, err := harvester.download(deposit, tempFile)
	tempFile.Close()
	if err != nil {
		return models.Failure(), err
	}
	if deposit.HasValidChecksum() && !strings.EqualFold(digest, deposit.ChecksumValue) {
		deposit.AddToProcessingLog(fmt.Sprintf("Deposit checksum does not match. Expected %s, got %s.",
			deposit.ChecksumValue, digest))
		return models.Failure(), nil
	}
	if deposit.PackageSize == 0 {
		deposit.PackageSize = size
	}

	harvestPath := harvester.Context.Config.HarvestPath(deposit)
	if err = fileutil.ClearDirectory(harvestPath); err != nil {
		return models.Failure(), errors.Wrapf(err, "Cannot clear %s", harvestPath)
	}
	if err = os.MkdirAll(harvestPath, 0755); err != nil {
		return models.Failure(), errors.Wrapf(err, "Cannot create %s", harvestPath)
	}
	result, err := tarfile.Extract(tempFile.Name(), harvestPath)
	if err != nil {
		return models.Failure(), err
	}
	harvester.Context.MessageLog.Info("Harvested %s: %d bytes, %d files unpacked to %s",
		deposit.DepositUuid, size, len(result.Files), harvestPath)
	for _, ignored := range result.Ignored {
		harvester.Context.MessageLog.Warning("Deposit %s: ignored package entry %s", deposit.DepositUuid, ignored)
	}
	return models.Success(), nil
}

// download copies the package to file, returning its hex digest in
// the deposit's checksum algorithm and its size.
func (harvester *Harvester) download(deposit *models.Deposit, file *os.File) (string, int64, error) {
	algorithm := deposit.ChecksumType
	if algorithm == "" {
		algorithm = constants.AlgSha1
	}
	digest, err := fileutil.NewHash(algorithm)
	if err != nil {
		return "", 0, err
	}
	resp, err := network.Get(harvester.Client, deposit.Url)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	size, err := io.Copy(io.MultiWriter(file, digest), resp.Body)
	if err != nil {
		return "", size, errors.Wrapf(err, "Download of %s interrupted", deposit.Url)
	}
	return fmt.Sprintf("%x", digest.Sum(nil)), size, nil
}
