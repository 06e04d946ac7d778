package encode

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cognicore/revbow/pkg/revbow/internalerr"
)

// Format renders v as "parent_id,index:count,index:count,...".
// A vector without entries renders as "parent_id,".
func Format(v Vector) string {
	var b strings.Builder
	b.WriteString(v.ParentID)
	b.WriteByte(',')
	for i, en := range v.Entries {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(en.Index))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(en.Count))
	}
	return b.String()
}

// Parse reads a line written by Format. Trailing index:count cells are
// taken as entries; everything before them is the parent id.
func Parse(line string) (Vector, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.HasSuffix(line, ",") {
		pid := strings.TrimSuffix(line, ",")
		if pid == "" {
			return Vector{}, fmt.Errorf("%w: vector line without parent id", internalerr.ErrInvalidInput)
		}
		return Vector{ParentID: pid}, nil
	}

	parts := strings.Split(line, ",")
	k := len(parts)
	var rev []Entry
	for k > 1 {
		en, ok := parseEntry(parts[k-1])
		if !ok {
			break
		}
		rev = append(rev, en)
		k--
	}
	if len(rev) == 0 {
		return Vector{}, fmt.Errorf("%w: vector line %q has no entries", internalerr.ErrInvalidInput, line)
	}

	entries := make([]Entry, len(rev))
	for i, en := range rev {
		entries[len(rev)-1-i] = en
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Index <= entries[i-1].Index {
			return Vector{}, fmt.Errorf("%w: vector indices not ascending in %q", internalerr.ErrInvalidInput, line)
		}
	}

	return Vector{ParentID: strings.Join(parts[:k], ","), Entries: entries}, nil
}

func parseEntry(cell string) (Entry, bool) {
	idx, cnt, ok := strings.Cut(cell, ":")
	if !ok {
		return Entry{}, false
	}
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 {
		return Entry{}, false
	}
	n, err := strconv.Atoi(cnt)
	if err != nil || n <= 0 {
		return Entry{}, false
	}
	return Entry{Index: i, Count: n}, true
}

// WriteAll writes one line per vector.
func WriteAll(w io.Writer, vectors []Vector) error {
	bw := bufio.NewWriter(w)
	for _, v := range vectors {
		if _, err := bw.WriteString(Format(v)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadAll parses every non-blank line of r.
func ReadAll(r io.Reader) ([]Vector, error) {
	var out []Vector
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		v, err := Parse(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
