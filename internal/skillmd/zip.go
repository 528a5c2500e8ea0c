package skillmd

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

const (
	MaxZipExtractedSize = 50 * 1024 * 1024
	MaxZipFileCount     = 500
)

// ExtractZip unpacks a skill archive with safety checks: no path traversal,
// no absolute paths, bounded entry count and extracted size. Any SKILL.md in
// the archive is skipped — the explicitly uploaded one wins.
func ExtractZip(data []byte) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid zip archive: %w", err)
	}

	var entries []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, f)
	}
	if len(entries) > MaxZipFileCount {
		return nil, fmt.Errorf("zip contains too many files (max %d)", MaxZipFileCount)
	}

	result := make(map[string][]byte)
	var totalSize int64
	for _, f := range entries {
		name := f.Name
		if strings.Contains(name, "..") || strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
			return nil, fmt.Errorf("unsafe path in zip: %s", name)
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("read zip entry %s: %w", name, err)
		}
		fileData, err := io.ReadAll(io.LimitReader(rc, MaxZipExtractedSize+1))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read zip entry %s: %w", name, err)
		}

		totalSize += int64(len(fileData))
		if totalSize > MaxZipExtractedSize {
			return nil, fmt.Errorf("zip extracted size exceeds limit (%dMB)", MaxZipExtractedSize/(1024*1024))
		}

		if name == "SKILL.md" {
			continue
		}
		result[name] = fileData
	}
	return result, nil
}
