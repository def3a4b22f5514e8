package photos

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"

	rardecode "github.com/nwaples/rardecode/v2"

	"herobook_back/session"
)

const (
	maxArchiveBytes int64 = 100 * 1024 * 1024 // 100 MiB upper guard
	maxEntryBytes   int64 = 10 * 1024 * 1024

	archiveFormatZip = "zip"
	archiveFormatRar = "rar"
)

var (
	zipMagic = []byte{'P', 'K'}
	rarMagic = []byte("Rar!")
)

// ErrUnsupportedArchive reports an upload that is neither zip nor rar.
var ErrUnsupportedArchive = errors.New("photos: archive must be a zip or rar file")

// ExtractArchive pulls the image entries out of an uploaded zip/rar batch
// and converts them into session images, in archive order, up to the
// remaining capacity. Non-image entries are skipped silently; a corrupted
// archive is an error.
func ExtractArchive(fileHeader *multipart.FileHeader, modifiedMillis int64, capacity int) ([]session.Image, error) {
	if fileHeader == nil {
		return nil, errors.New("photos: archive file not provided")
	}
	if fileHeader.Size > 0 && fileHeader.Size > maxArchiveBytes {
		return nil, fmt.Errorf("photos: archive size exceeds %d bytes", maxArchiveBytes)
	}
	if capacity <= 0 {
		return nil, nil
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("photos: open archive: %w", err)
	}
	defer src.Close()

	var buf bytes.Buffer
	written, err := io.Copy(&buf, io.LimitReader(src, maxArchiveBytes+1))
	if err != nil {
		return nil, fmt.Errorf("photos: read archive: %w", err)
	}
	if written > maxArchiveBytes {
		return nil, fmt.Errorf("photos: archive size exceeds %d bytes", maxArchiveBytes)
	}

	data := buf.Bytes()
	switch detectArchiveFormat(data, fileHeader.Filename) {
	case archiveFormatZip:
		return extractZip(data, modifiedMillis, capacity)
	case archiveFormatRar:
		return extractRar(data, modifiedMillis, capacity)
	default:
		return nil, ErrUnsupportedArchive
	}
}

func detectArchiveFormat(data []byte, filename string) string {
	if bytes.HasPrefix(data, rarMagic) {
		return archiveFormatRar
	}
	if bytes.HasPrefix(data, zipMagic) {
		return archiveFormatZip
	}
	switch strings.ToLower(path.Ext(filename)) {
	case ".zip":
		return archiveFormatZip
	case ".rar":
		return archiveFormatRar
	}
	return ""
}

func extractZip(data []byte, modifiedMillis int64, capacity int) ([]session.Image, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("photos: open zip: %w", err)
	}

	var images []session.Image
	for _, entry := range reader.File {
		if len(images) >= capacity {
			break
		}
		if entry.FileInfo().IsDir() || !isImageEntry(entry.Name) {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("photos: open zip entry %s: %w", entry.Name, err)
		}
		payload, err := readEntry(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("photos: read zip entry %s: %w", entry.Name, err)
		}

		images = append(images, NewImage(path.Base(entry.Name), modifiedMillis, contentTypeForEntry(entry.Name), payload))
	}
	return images, nil
}

func extractRar(data []byte, modifiedMillis int64, capacity int) ([]session.Image, error) {
	reader, err := rardecode.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("photos: open rar: %w", err)
	}

	var images []session.Image
	for len(images) < capacity {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("photos: read rar: %w", err)
		}
		if header.IsDir || !isImageEntry(header.Name) {
			continue
		}

		payload, err := readEntry(reader)
		if err != nil {
			return nil, fmt.Errorf("photos: read rar entry %s: %w", header.Name, err)
		}

		images = append(images, NewImage(path.Base(header.Name), modifiedMillis, contentTypeForEntry(header.Name), payload))
	}
	return images, nil
}

func readEntry(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	written, err := io.Copy(&buf, io.LimitReader(r, maxEntryBytes+1))
	if err != nil {
		return nil, err
	}
	if written > maxEntryBytes {
		return nil, fmt.Errorf("entry exceeds %d bytes", maxEntryBytes)
	}
	return buf.Bytes(), nil
}

func isImageEntry(name string) bool {
	base := path.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "__MACOSX") {
		return false
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}

func contentTypeForEntry(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return ""
	}
}
