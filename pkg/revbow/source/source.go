package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/cognicore/revbow/pkg/revbow/extract"
	"github.com/cognicore/revbow/pkg/revbow/internalerr"
	"github.com/cognicore/revbow/pkg/revbow/record"
)

// DefaultIgnorePrefixes names the spreadsheet index columns dropped on load.
var DefaultIgnorePrefixes = []string{"X"}

// sniffLen is how many leading bytes are used to detect the content type.
const sniffLen = 3072

// Blob is the content of one raw text file.
type Blob struct {
	Path string
	Text string
}

// FileError reports an input file that could not be used.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap lets errors.Is match both the cause and ErrStructural.
func (e *FileError) Unwrap() []error {
	return []error{internalerr.ErrStructural, e.Err}
}

// LoadBlobs reads raw text files. A file that is unreadable or not text is
// reported in errs and skipped; the remaining files still load.
func LoadBlobs(paths []string) (blobs []Blob, errs []error) {
	for _, path := range paths {
		text, err := readText(path)
		if err != nil {
			slog.Warn("skipping input file", "path", path, "error", err)
			errs = append(errs, &FileError{Path: path, Err: err})
			continue
		}
		blobs = append(blobs, Blob{Path: path, Text: text})
	}
	return blobs, errs
}

// Texts returns the text of every blob.
func Texts(blobs []Blob) []string {
	out := make([]string, len(blobs))
	for i, b := range blobs {
		out[i] = b.Text
	}
	return out
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", nil
	}

	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if mt := mimetype.Detect(head); !isText(mt) {
		return "", fmt.Errorf("not a text file (%s)", mt.String())
	}
	return string(data), nil
}

// isText reports whether mt is text/plain or a subtype of it.
func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// LoadTable reads a CSV export of the review spreadsheet. Columns starting
// with an ignored prefix are dropped, other non-canonical columns are
// ignored, and canonical columns the sheet lacks become record.None.
func LoadTable(path string, ignorePrefixes []string) ([]record.Raw, extract.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, extract.Stats{}, &FileError{Path: path, Err: err}
	}
	defer f.Close()

	raws, stats, err := ReadTable(f, ignorePrefixes)
	if err != nil {
		return nil, extract.Stats{}, &FileError{Path: path, Err: err}
	}
	return raws, stats, nil
}

// ReadTable is LoadTable over an open reader.
func ReadTable(r io.Reader, ignorePrefixes []string) ([]record.Raw, extract.Stats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, extract.Stats{}, errors.New("empty table")
		}
		return nil, extract.Stats{}, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[record.Field]int)
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if ignored(name, ignorePrefixes) {
			continue
		}
		f := record.Field(strings.ToLower(name))
		if !record.IsCanonical(string(f)) {
			continue
		}
		if _, dup := columns[f]; !dup {
			columns[f] = i
		}
	}

	stats := extract.Stats{Missing: make(map[record.Field]int)}
	var out []record.Raw
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, extract.Stats{}, fmt.Errorf("read row %d: %w", len(out)+2, err)
		}

		raw := make(record.Raw, len(record.Fields))
		for _, f := range record.Fields {
			i, ok := columns[f]
			if !ok || i >= len(row) {
				raw[f] = record.None
				stats.Missing[f]++
				continue
			}
			raw[f] = row[i]
		}
		out = append(out, raw)
	}
	stats.Records = len(out)
	return out, stats, nil
}

func ignored(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
