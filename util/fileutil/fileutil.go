package fileutil

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"io/ioutil"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/pkp/pln/constants"
)

// PlnHome returns the absolute path to the pln root directory,
// which contains source, config and test files. You can set this
// explicitly by defining an environment variable called PLN_HOME.
// Otherwise, this walks up from the current working directory
// until it finds the directory containing go.mod. If neither works,
// this returns an error.
func PlnHome() (plnHome string, err error) {
	plnHome = os.Getenv("PLN_HOME")
	if plnHome != "" {
		return filepath.Abs(plnHome)
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if FileExists(filepath.Join(dir, "go.mod")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("Cannot determine pln home because PLN_HOME is not " +
		"set and no go.mod was found above the working directory.")
}

// LoadRelativeFile reads the file at the specified path
// relative to PLN_HOME and returns the contents as a byte array.
func LoadRelativeFile(relativePath string) ([]byte, error) {
	absPath, err := RelativeToAbsPath(relativePath)
	if err != nil {
		return nil, err
	}
	return ioutil.ReadFile(absPath)
}

// Converts a relative path within the pln directory tree
// to an absolute path.
func RelativeToAbsPath(relativePath string) (string, error) {
	if filepath.IsAbs(relativePath) {
		return relativePath, nil
	}
	plnHome, err := PlnHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(plnHome, relativePath), nil
}

// Returns true if the file at path exists, false if not.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	if err != nil && os.IsNotExist(err) {
		return false
	}
	return true
}

// Expands the tilde in a directory path to the current
// user's home directory. For example, on Linux, ~/data
// would expand to something like /home/josie/data
func ExpandTilde(filePath string) (string, error) {
	if strings.Index(filePath, "~") < 0 {
		return filePath, nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	homeDir := usr.HomeDir + "/"
	expandedDir := strings.Replace(filePath, "~/", homeDir, 1)
	return expandedDir, nil
}

// RecursiveFileList returns a list of all files in path dir
// and its subfolders. It does not return directories.
func RecursiveFileList(dir string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.Walk(dir, func(filePath string, f os.FileInfo, err error) error {
		if f != nil && f.IsDir() == false {
			files = append(files, filePath)
		}
		return nil
	})
	return files, err
}

// Returns true if the path specified by dir has at least minLength
// characters and at least minSeparators path separators. This is
// for testing paths you want pass into os.RemoveAll(), so you don't
// wind up deleting "/" or "/etc" or something catastrophic like that.
func LooksSafeToDelete(dir string, minLength, minSeparators int) bool {
	separator := string(os.PathSeparator)
	separatorCount := (len(dir) - len(strings.Replace(dir, separator, "", -1)))
	return len(dir) >= minLength && separatorCount >= minSeparators
}

// ClearDirectory removes dir and everything under it. It refuses
// paths shorter than 12 characters or with fewer than 3 separators.
func ClearDirectory(dir string) error {
	if !LooksSafeToDelete(dir, 12, 3) {
		return fmt.Errorf("Refusing to delete %s", dir)
	}
	return os.RemoveAll(dir)
}

// NormalizeAlgorithm maps the names providers use for digest
// algorithms ("SHA-1", "sha1", "SHA256", "MD5") to one of
// constants.ChecksumAlgorithms. Unknown names come back lower-cased
// and unchanged otherwise.
func NormalizeAlgorithm(algorithm string) string {
	alg := strings.ToLower(strings.Replace(algorithm, "-", "", -1))
	return strings.TrimSpace(alg)
}

// NewHash returns a hash for one of constants.ChecksumAlgorithms.
func NewHash(algorithm string) (hash.Hash, error) {
	switch NormalizeAlgorithm(algorithm) {
	case constants.AlgMd5:
		return md5.New(), nil
	case constants.AlgSha1:
		return sha1.New(), nil
	case constants.AlgSha256:
		return sha256.New(), nil
	}
	return nil, fmt.Errorf("Unsupported algorithm: %s", algorithm)
}

// CalculateChecksum calculates the md5, sha1 or sha256 checksum of
// a file. Returns the hex-encoded digest or an error.
func CalculateChecksum(pathToFile, algorithm string) (string, error) {
	_hash, err := NewHash(algorithm)
	if err != nil {
		return "", err
	}
	inputFile, err := os.Open(pathToFile)
	if err != nil {
		return "", err
	}
	defer inputFile.Close()
	if _, err = io.Copy(_hash, inputFile); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", _hash.Sum(nil)), nil
}

// FindBagRoot returns the directory under dir that holds bagit.txt.
// That is dir itself, or its only subdirectory when a tarred bag
// expanded into a top-level directory of its own.
func FindBagRoot(dir string) (string, error) {
	if FileExists(filepath.Join(dir, "bagit.txt")) {
		return dir, nil
	}
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var candidate string
	for _, entry := range entries {
		if entry.IsDir() && FileExists(filepath.Join(dir, entry.Name(), "bagit.txt")) {
			if candidate != "" {
				return "", fmt.Errorf("Directory %s contains more than one bag", dir)
			}
			candidate = filepath.Join(dir, entry.Name())
		}
	}
	if candidate == "" {
		return "", fmt.Errorf("No bag found in %s", dir)
	}
	return candidate, nil
}
