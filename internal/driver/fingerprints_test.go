package driver

import (
	"os"
	"path/filepath"
	"testing"

	"zwave-lock-bridge/internal/lock"
)

func TestLookupFallsBackToVariantA(t *testing.T) {
	db := NewVariantDB()
	variant, model := db.Lookup(lock.Fingerprint{ManufacturerID: 0xDEAD, ProductType: 1, ProductID: 2})
	if variant.Name != lock.VariantA.Name {
		t.Errorf("variant = %q, want A fallback", variant.Name)
	}
	if model != "" {
		t.Errorf("model = %q, want empty for unmatched fingerprint", model)
	}
}

func TestLookupResolvesVariants(t *testing.T) {
	db := NewVariantDB()
	db.Add(FingerprintEntry{ManufacturerID: 0x0129, ProductType: 2, ProductID: 0x0800, Variant: "A", Name: "Lever Lock"})
	db.Add(FingerprintEntry{ManufacturerID: 0x0129, ProductType: 2, ProductID: 0x0900, Variant: "B", Name: "Deadbolt"})

	variant, model := db.Lookup(lock.Fingerprint{ManufacturerID: 0x0129, ProductType: 2, ProductID: 0x0800})
	if variant.MaxSlots != 15 || model != "Lever Lock" {
		t.Errorf("A lookup = %q/%d slots, model %q", variant.Name, variant.MaxSlots, model)
	}

	variant, model = db.Lookup(lock.Fingerprint{ManufacturerID: 0x0129, ProductType: 2, ProductID: 0x0900})
	if variant.MaxSlots != 20 || model != "Deadbolt" {
		t.Errorf("B lookup = %q/%d slots, model %q", variant.Name, variant.MaxSlots, model)
	}
}

func TestAddReplacesExistingEntry(t *testing.T) {
	db := NewVariantDB()
	fp := FingerprintEntry{ManufacturerID: 1, ProductType: 1, ProductID: 1, Variant: "A"}
	db.Add(fp)
	fp.Variant = "B"
	db.Add(fp)

	if db.Len() != 1 {
		t.Fatalf("len = %d, want 1", db.Len())
	}
	variant, _ := db.Lookup(lock.Fingerprint{ManufacturerID: 1, ProductType: 1, ProductID: 1})
	if variant.Name != "B" {
		t.Errorf("variant = %q after replacement, want B", variant.Name)
	}
}

func TestLoadFingerprintDir(t *testing.T) {
	dir := t.TempDir()
	data := `{
  "fingerprints": [
    {"manufacturer_id": 297, "product_type": 2, "product_id": 2048, "variant": "A", "name": "Lever Lock"},
    {"manufacturer_id": 297, "product_type": 2, "product_id": 2304, "variant": "B", "name": "Deadbolt"}
  ]
}`
	if err := os.WriteFile(filepath.Join(dir, "locks.json"), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	db, err := LoadFingerprintDir(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if db.Len() != 2 {
		t.Fatalf("loaded %d entries, want 2", db.Len())
	}
	variant, _ := db.Lookup(lock.Fingerprint{ManufacturerID: 297, ProductType: 2, ProductID: 2304})
	if variant.Name != "B" {
		t.Errorf("variant = %q, want B", variant.Name)
	}
}

func TestLoadFingerprintDirMissing(t *testing.T) {
	db, err := LoadFingerprintDir(filepath.Join(t.TempDir(), "nope"), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if db.Len() != 0 {
		t.Errorf("len = %d for missing dir, want 0", db.Len())
	}
}

func TestLoadFingerprintDirBadJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFingerprintDir(dir, testLogger()); err == nil {
		t.Error("want error for malformed fingerprint file")
	}
}
