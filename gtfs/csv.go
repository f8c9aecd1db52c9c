package gtfs

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

const utf8BOM = "\ufeff"

// table streams rows from one CSV file with case-insensitive column lookup
type table struct {
	rc      io.ReadCloser
	r       *csv.Reader
	cols    map[string]int
	skipped int
}

// openTable returns errMissingFile when the bundle lacks the file
func openTable(src source, name string) (*table, error) {
	rc, err := src.open(name)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	head, err := r.Read()
	if errors.Is(err, io.EOF) {
		head = nil
	} else if err != nil {
		_ = rc.Close()
		return nil, err
	}
	cols := make(map[string]int, len(head))
	for i, h := range head {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return &table{rc: rc, r: r, cols: cols}, nil
}

// next returns the next well-formed record or io.EOF. Rows that fail to
// parse are counted and skipped. The returned slice is reused between calls.
func (t *table) next() ([]string, error) {
	for {
		rec, err := t.r.Read()
		if err == nil {
			return rec, nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			t.skipped++
			continue
		}
		return nil, err
	}
}

// get returns the trimmed value of the first present, non-empty column
func (t *table) get(rec []string, cols ...string) string {
	for _, c := range cols {
		i, ok := t.cols[c]
		if !ok || i >= len(rec) {
			continue
		}
		if v := strings.TrimSpace(rec[i]); v != "" {
			return v
		}
	}
	return ""
}

func (t *table) skip() { t.skipped++ }

func (t *table) Close() error { return t.rc.Close() }
