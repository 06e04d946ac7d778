package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/revbow/pkg/revbow/internalerr"
	"github.com/cognicore/revbow/pkg/revbow/record"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadBlobsSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "a.txt", []byte("<record><category>Books</category></record>\n"))
	empty := writeFile(t, dir, "b.txt", nil)
	binary := writeFile(t, dir, "c.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01"))
	missing := filepath.Join(dir, "missing.txt")

	blobs, errs := LoadBlobs([]string{good, binary, missing, empty})
	if len(blobs) != 2 {
		t.Fatalf("expected 2 blobs, got %d", len(blobs))
	}
	if blobs[0].Path != good || !strings.Contains(blobs[0].Text, "Books") {
		t.Errorf("unexpected first blob %+v", blobs[0])
	}
	if blobs[1].Path != empty || blobs[1].Text != "" {
		t.Errorf("unexpected second blob %+v", blobs[1])
	}

	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	for _, err := range errs {
		if !errors.Is(err, internalerr.ErrStructural) {
			t.Errorf("expected structural error, got %v", err)
		}
	}
	if !errors.Is(errs[1], os.ErrNotExist) {
		t.Errorf("missing file should unwrap to ErrNotExist: %v", errs[1])
	}

	texts := Texts(blobs)
	if len(texts) != 2 || texts[1] != "" {
		t.Errorf("unexpected texts %q", texts)
	}
}

func TestReadTable(t *testing.T) {
	csv := "X,X.1,category,reviewer_id,rating,review_text,parent_product_id,extra\n" +
		"0,0,Books,u1,5,\"Great, really\",P1,zzz\n" +
		"1,1,Books,u2,,,P2\n"

	raws, stats, err := ReadTable(strings.NewReader(csv), DefaultIgnorePrefixes)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(raws) != 2 || stats.Records != 2 {
		t.Fatalf("expected 2 rows, got %d (stats %d)", len(raws), stats.Records)
	}

	first := raws[0]
	if first[record.ReviewText] != "Great, really" {
		t.Errorf("review_text = %q", first[record.ReviewText])
	}
	if first[record.ParentProductID] != "P1" {
		t.Errorf("parent_product_id = %q", first[record.ParentProductID])
	}
	if first[record.ProductID] != record.None {
		t.Errorf("absent column should be none, got %q", first[record.ProductID])
	}
	for _, f := range []record.Field{"x", "x.1", "extra"} {
		if _, ok := first[f]; ok {
			t.Errorf("column %s should be dropped", f)
		}
	}
	if len(first) != len(record.Fields) {
		t.Errorf("expected %d fields, got %d", len(record.Fields), len(first))
	}

	second := raws[1]
	if second[record.Rating] != "" {
		t.Errorf("empty cell should stay empty, got %q", second[record.Rating])
	}

	// product_id, review_title, attached_images, review_timestamp,
	// is_verified_purchase and helpful_votes are absent in both rows.
	if got := stats.MissingTotal(); got != 12 {
		t.Errorf("expected 12 missing values, got %d", got)
	}
}

func TestReadTableEmpty(t *testing.T) {
	if _, _, err := ReadTable(strings.NewReader(""), nil); err == nil {
		t.Fatal("expected error for empty table")
	}
}

func TestLoadTableMissingFile(t *testing.T) {
	_, _, err := LoadTable(filepath.Join(t.TempDir(), "nope.csv"), nil)
	if !errors.Is(err, internalerr.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
}
