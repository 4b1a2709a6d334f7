package tarfile

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Writer builds a tar file from files on disk. Open it before adding
// files, and Close it to flush the archive.
type Writer struct {
	PathToTarFile string
	// Files counts the files added so far.
	Files int

	tarFile   *os.File
	tarWriter *tar.Writer
}

func NewWriter(pathToTarFile string) *Writer {
	return &Writer{PathToTarFile: pathToTarFile}
}

func (writer *Writer) Open() error {
	tarFile, err := os.Create(writer.PathToTarFile)
	if err != nil {
		return errors.Wrap(err, "Cannot create tar file")
	}
	writer.tarFile = tarFile
	writer.tarWriter = tar.NewWriter(tarFile)
	return nil
}

// Close flushes the archive and closes the file. Closing a writer
// that is not open does nothing.
func (writer *Writer) Close() error {
	if writer.tarWriter == nil {
		return nil
	}
	err := writer.tarWriter.Close()
	closeErr := writer.tarFile.Close()
	writer.tarWriter = nil
	if err != nil {
		return err
	}
	return closeErr
}

// AddToArchive copies the file at filePath into the archive as
// pathWithinArchive.
func (writer *Writer) AddToArchive(filePath, pathWithinArchive string) error {
	if writer.tarWriter == nil {
		return errors.New("Tar writer is not open")
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return errors.Wrapf(err, "Cannot add '%s' to archive", filePath)
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return errors.Wrapf(err, "Cannot build tar header for '%s'", filePath)
	}
	header.Name = filepath.ToSlash(pathWithinArchive)
	if err = writer.tarWriter.WriteHeader(header); err != nil {
		return errors.Wrapf(err, "Cannot write tar header for '%s'", filePath)
	}
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()
	written, err := io.Copy(writer.tarWriter, file)
	if err != nil {
		return errors.Wrapf(err, "Cannot copy %s into tar archive", filePath)
	}
	if written != header.Size {
		return errors.Errorf("Copied only %d of %d bytes of %s into tar archive",
			written, header.Size, filePath)
	}
	writer.Files++
	return nil
}

// AddDirectory adds every regular file under dir to the archive,
// under prefix.
func (writer *Writer) AddDirectory(dir, prefix string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return writer.AddToArchive(path, filepath.Join(prefix, relPath))
	})
}
