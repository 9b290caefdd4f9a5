package driver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"zwave-lock-bridge/internal/lock"
)

// FingerprintEntry binds one manufacturer/product/model triple to a
// firmware variant.
type FingerprintEntry struct {
	ManufacturerID uint16 `json:"manufacturer_id"`
	ProductType    uint16 `json:"product_type"`
	ProductID      uint16 `json:"product_id"`
	Variant        string `json:"variant"` // "A" or "B"
	Name           string `json:"name,omitempty"`
}

// VariantDB resolves fingerprints to firmware variants.
type VariantDB struct {
	entries map[lock.Fingerprint]FingerprintEntry
}

// NewVariantDB creates an empty database.
func NewVariantDB() *VariantDB {
	return &VariantDB{entries: make(map[lock.Fingerprint]FingerprintEntry)}
}

// Add inserts an entry, replacing any previous one for the same triple.
func (db *VariantDB) Add(e FingerprintEntry) {
	db.entries[lock.Fingerprint{
		ManufacturerID: e.ManufacturerID,
		ProductType:    e.ProductType,
		ProductID:      e.ProductID,
	}] = e
}

// Len returns the number of fingerprint entries.
func (db *VariantDB) Len() int {
	return len(db.entries)
}

// Lookup resolves a fingerprint. Unmatched fingerprints fall back to
// variant A, the conservative choice: fewer slots and the legacy relock
// parameter are accepted by both firmware generations.
func (db *VariantDB) Lookup(fp lock.Fingerprint) (lock.FirmwareVariant, string) {
	e, ok := db.entries[fp]
	if !ok {
		return lock.VariantA, ""
	}
	if e.Variant == lock.VariantB.Name {
		return lock.VariantB, e.Name
	}
	return lock.VariantA, e.Name
}

// fingerprintFile is the JSON structure for files in the fingerprints
// directory.
type fingerprintFile struct {
	Fingerprints []FingerprintEntry `json:"fingerprints"`
}

// LoadFingerprintDir reads all *.json files from a directory into a
// VariantDB. A missing or empty directory yields an empty database, not an
// error: the variant A fallback still works without any files.
func LoadFingerprintDir(dir string, logger *slog.Logger) (*VariantDB, error) {
	db := NewVariantDB()

	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return db, fmt.Errorf("glob fingerprints dir: %w", err)
	}
	if len(matches) == 0 {
		logger.Info("no fingerprint files found", "dir", dir)
		return db, nil
	}

	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return db, fmt.Errorf("read %s: %w", path, err)
		}
		var ff fingerprintFile
		if err := json.Unmarshal(data, &ff); err != nil {
			return db, fmt.Errorf("parse %s: %w", path, err)
		}
		for _, e := range ff.Fingerprints {
			db.Add(e)
		}
		logger.Info("loaded fingerprint file", "path", filepath.Base(path), "entries", len(ff.Fingerprints))
	}

	logger.Info("fingerprint database loaded", "files", len(matches), "entries", db.Len())
	return db, nil
}
