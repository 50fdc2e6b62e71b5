// Package output writes crawl results to their destinations.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bradykim7/auchan-crawler/internal/models"
)

// WriteJSON writes products as an indented JSON array. Non-ASCII text is
// kept literal. An existing file at path is replaced.
func WriteJSON(path string, products []models.Product) error {
	if products == nil {
		products = []models.Product{}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(products); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode products: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
