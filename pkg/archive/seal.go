package archive

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"pusharc/pkg/logger"
)

// SealedSuffix is appended to the plain file path to form the sealed path
const SealedSuffix = ".gz"

// SealedPath returns the sealed artifact path for a plain file path
func SealedPath(plainPath string) string {
	return plainPath + SealedSuffix
}

// Seal losslessly compresses a finished plain file into its terminal
// immutable form and removes the plain file. Only a Finished archive may
// be sealed; the caller guarantees that.
func Seal(plainPath string, log logger.Logger) (string, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	src, err := os.Open(plainPath)
	if err != nil {
		return "", fmt.Errorf("failed to open plain file: %w", err)
	}
	defer src.Close()

	sealedPath := SealedPath(plainPath)
	dst, err := os.Create(sealedPath)
	if err != nil {
		return "", fmt.Errorf("failed to create sealed file: %w", err)
	}

	gz := gzip.NewWriter(dst)
	if _, err := io.Copy(gz, src); err != nil {
		gz.Close()
		dst.Close()
		os.Remove(sealedPath)
		return "", fmt.Errorf("failed to compress archive: %w", err)
	}

	if err := gz.Close(); err != nil {
		dst.Close()
		os.Remove(sealedPath)
		return "", fmt.Errorf("failed to finalize compression: %w", err)
	}

	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(sealedPath)
		return "", fmt.Errorf("failed to sync sealed file: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(sealedPath)
		return "", fmt.Errorf("failed to close sealed file: %w", err)
	}

	if err := os.Remove(plainPath); err != nil {
		return "", fmt.Errorf("failed to remove plain file after sealing: %w", err)
	}

	log.InfoWithFields("archive sealed", map[string]interface{}{
		"path": sealedPath,
	})

	return sealedPath, nil
}
