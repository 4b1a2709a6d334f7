package tarfile

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExtractResult describes what came out of a package.
type ExtractResult struct {
	// Files holds the paths of the extracted files, relative to
	// the destination directory.
	Files []string
	// Ignored holds the names of entries that were neither files
	// nor directories, such as symlinks.
	Ignored []string
	// Bytes is the total size of the extracted files.
	Bytes int64
}

func newExtractResult() *ExtractResult {
	return &ExtractResult{
		Files:   make([]string, 0),
		Ignored: make([]string, 0),
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zipMagic  = []byte("PK\x03\x04")
)

// Extract unpacks a tar, gzipped tar or zip file into destDir.
// The format is detected from the file's first bytes. Entries that
// would land outside destDir are rejected.
func Extract(pathToFile, destDir string) (*ExtractResult, error) {
	file, err := os.Open(pathToFile)
	if err != nil {
		return nil, fmt.Errorf("Could not open file %s for extraction: %v", pathToFile, err)
	}
	defer file.Close()

	buffered := bufio.NewReader(file)
	magic, _ := buffered.Peek(4)
	switch {
	case bytes.HasPrefix(magic, zipMagic):
		file.Close()
		return ExtractZip(pathToFile, destDir)
	case bytes.HasPrefix(magic, gzipMagic):
		gzipReader, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, fmt.Errorf("Error reading gzip header of %s: %v", pathToFile, err)
		}
		defer gzipReader.Close()
		return Untar(gzipReader, destDir)
	}
	return Untar(buffered, destDir)
}

// Untar unpacks the tar stream in reader into destDir.
func Untar(reader io.Reader, destDir string) (*ExtractResult, error) {
	result := newExtractResult()
	tarReader := tar.NewReader(reader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break // end of archive
		}
		if err != nil {
			return result, fmt.Errorf("Error reading tar file header: %v. "+
				"Either this is not a tar file, or the file is corrupt.", err)
		}
		switch header.Typeflag {
		case tar.TypeDir:
			outputPath, err := safeJoin(destDir, header.Name)
			if err != nil {
				return result, err
			}
			if err = os.MkdirAll(outputPath, 0755); err != nil {
				return result, err
			}
		case tar.TypeReg, tar.TypeRegA:
			if err = saveEntry(destDir, header.Name, tarReader, result); err != nil {
				return result, err
			}
		default:
			// The bag library does not deal with items like symlinks.
			result.Ignored = append(result.Ignored, header.Name)
		}
	}
	return result, nil
}

// ExtractZip unpacks the zip file at pathToFile into destDir.
func ExtractZip(pathToFile, destDir string) (*ExtractResult, error) {
	result := newExtractResult()
	zipReader, err := zip.OpenReader(pathToFile)
	if err != nil {
		return nil, fmt.Errorf("Error reading zip file %s: %v", pathToFile, err)
	}
	defer zipReader.Close()
	for _, entry := range zipReader.File {
		if entry.FileInfo().IsDir() {
			outputPath, err := safeJoin(destDir, entry.Name)
			if err != nil {
				return result, err
			}
			if err = os.MkdirAll(outputPath, 0755); err != nil {
				return result, err
			}
			continue
		}
		if !entry.Mode().IsRegular() {
			result.Ignored = append(result.Ignored, entry.Name)
			continue
		}
		entryReader, err := entry.Open()
		if err != nil {
			return result, fmt.Errorf("Error opening %s in zip file: %v", entry.Name, err)
		}
		err = saveEntry(destDir, entry.Name, entryReader, result)
		entryReader.Close()
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

func saveEntry(destDir, name string, reader io.Reader, result *ExtractResult) error {
	outputPath, err := safeJoin(destDir, name)
	if err != nil {
		return err
	}
	// Make sure the directory that we're about to write into exists.
	if err = os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("Could not create directory for '%s' "+
			"while unpacking archive: %v", outputPath, err)
	}
	outputWriter, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("Error opening %s for writing: %v", outputPath, err)
	}
	bytesWritten, err := io.Copy(outputWriter, reader)
	closeErr := outputWriter.Close()
	if err != nil {
		return fmt.Errorf("Error copying file from archive to '%s': %v", outputPath, err)
	}
	if closeErr != nil {
		return closeErr
	}
	relPath, _ := filepath.Rel(destDir, outputPath)
	result.Files = append(result.Files, relPath)
	result.Bytes += bytesWritten
	return nil
}

// safeJoin joins name to destDir, refusing names that escape destDir.
func safeJoin(destDir, name string) (string, error) {
	cleanDest := filepath.Clean(destDir)
	outputPath := filepath.Join(cleanDest, name)
	if outputPath != cleanDest && !strings.HasPrefix(outputPath, cleanDest+string(os.PathSeparator)) {
		return "", fmt.Errorf("Archive entry '%s' points outside the destination directory", name)
	}
	return outputPath, nil
}
