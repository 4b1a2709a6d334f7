package validation

import (
	"github.com/APTrust/bagins"
	"github.com/pkg/errors"
	"github.com/pkp/pln/util/fileutil"
)

// BagReader opens a harvested bag and returns the path to its root
// directory, the one that holds bagit.txt and data/.
type BagReader interface {
	ReadBag(harvestPath string) (string, error)
}

// BaginsReader reads bags with the bagins library. It checks that
// the bag has a bagit.txt and parseable manifests. It does not
// verify payload checksums; the harvester checks the package
// checksum the provider sent us.
type BaginsReader struct{}

func (reader BaginsReader) ReadBag(harvestPath string) (string, error) {
	root, err := fileutil.FindBagRoot(harvestPath)
	if err != nil {
		return "", errors.Wrapf(err, "Cannot find bag in %s", harvestPath)
	}
	bag, err := bagins.ReadBag(root, nil)
	if err != nil {
		return "", errors.Wrapf(err, "Cannot read bag at %s", root)
	}
	return bag.Path(), nil
}
