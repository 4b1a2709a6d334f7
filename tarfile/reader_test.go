package tarfile_test

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkp/pln/tarfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entries = map[string]string{
	"bag/bagit.txt":     "BagIt-Version: 0.97\n",
	"bag/data/file.txt": "some data",
}

func writeTar(t *testing.T, writer io.Writer, names map[string]string) {
	tarWriter := tar.NewWriter(writer)
	for name, content := range names {
		require.Nil(t, tarWriter.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tarWriter.Write([]byte(content))
		require.Nil(t, err)
	}
	require.Nil(t, tarWriter.Close())
}

func TestExtract_Tar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deposit.tar")
	file, err := os.Create(path)
	require.Nil(t, err)
	writeTar(t, file, entries)
	file.Close()

	dest := t.TempDir()
	result, err := tarfile.Extract(path, dest)
	require.Nil(t, err)
	assert.Equal(t, 2, len(result.Files))
	assert.Equal(t, int64(len("BagIt-Version: 0.97\n")+len("some data")), result.Bytes)
	data, err := ioutil.ReadFile(filepath.Join(dest, "bag", "data", "file.txt"))
	require.Nil(t, err)
	assert.Equal(t, "some data", string(data))
}

func TestExtract_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deposit.tgz")
	file, err := os.Create(path)
	require.Nil(t, err)
	gzipWriter := gzip.NewWriter(file)
	writeTar(t, gzipWriter, entries)
	require.Nil(t, gzipWriter.Close())
	file.Close()

	dest := t.TempDir()
	result, err := tarfile.Extract(path, dest)
	require.Nil(t, err)
	assert.Equal(t, 2, len(result.Files))
}

func TestExtract_Zip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deposit.zip")
	file, err := os.Create(path)
	require.Nil(t, err)
	zipWriter := zip.NewWriter(file)
	for name, content := range entries {
		entry, err := zipWriter.Create(name)
		require.Nil(t, err)
		_, err = entry.Write([]byte(content))
		require.Nil(t, err)
	}
	require.Nil(t, zipWriter.Close())
	file.Close()

	dest := t.TempDir()
	result, err := tarfile.Extract(path, dest)
	require.Nil(t, err)
	assert.Equal(t, 2, len(result.Files))
	data, err := ioutil.ReadFile(filepath.Join(dest, "bag", "bagit.txt"))
	require.Nil(t, err)
	assert.Equal(t, "BagIt-Version: 0.97\n", string(data))
}

func TestExtract_RejectsTraversal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evil.tar")
	file, err := os.Create(path)
	require.Nil(t, err)
	writeTar(t, file, map[string]string{"../../etc/evil": "x"})
	file.Close()

	_, err = tarfile.Extract(path, t.TempDir())
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "outside the destination")
}

func TestExtract_NotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.bin")
	require.Nil(t, ioutil.WriteFile(path, []byte(strings.Repeat("junk", 300)), 0644))
	_, err := tarfile.Extract(path, t.TempDir())
	assert.NotNil(t, err)

	_, err = tarfile.Extract(filepath.Join(t.TempDir(), "missing.tar"), t.TempDir())
	assert.NotNil(t, err)
}
