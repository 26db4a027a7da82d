// Package bulk downloads the assets listed in a CSV manifest with a pool of
// workers sharing one logged-in CSDA client.
package bulk

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Row is one asset to download.
type Row struct {
	Line       int
	Collection string
	Item       string
	Asset      string

	// Path is the destination. Relative paths are resolved against the
	// output directory and may not leave it; empty means
	// <collection>/<item>/<asset>.
	Path string
}

// Destination returns where the row is written under outDir.
func (r Row) Destination(outDir string) string {
	if r.Path == "" {
		return filepath.Join(outDir, r.Collection, r.Item, r.Asset)
	}
	if filepath.IsAbs(r.Path) {
		return r.Path
	}
	return filepath.Join(outDir, r.Path)
}

func (r Row) String() string {
	return r.Collection + "/" + r.Item + "/" + r.Asset
}

var headerNames = []string{"collection_id", "item_id", "asset_key", "path"}

// ParseManifest reads a CSV manifest with the columns
// collection_id,item_id,asset_key[,path]. A header row with those names is
// optional. Lines starting with # are ignored.
//
// Relative destinations must stay inside the output directory, and no two
// rows may share a destination.
func ParseManifest(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []Row
	seen := make(map[string]int)
	first := true
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading manifest: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if first {
			first = false
			if isHeader(record) {
				continue
			}
		}

		row, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("manifest line %d: %w", line, err)
		}
		row.Line = line

		key := row.Destination("")
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("manifest line %d: destination %s is already used by line %d", line, key, prev)
		}
		seen[key] = line
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, errors.New("manifest has no rows")
	}
	return rows, nil
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), headerNames[0])
}

func parseRecord(record []string) (Row, error) {
	if len(record) < 3 || len(record) > 4 {
		return Row{}, fmt.Errorf("expected 3 or 4 columns (%s), got %d",
			strings.Join(headerNames, ","), len(record))
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	row := Row{
		Collection: record[0],
		Item:       record[1],
		Asset:      record[2],
	}
	if len(record) == 4 {
		row.Path = record[3]
	}

	for i, v := range []string{row.Collection, row.Item, row.Asset} {
		if v == "" {
			return Row{}, fmt.Errorf("%s is empty", headerNames[i])
		}
	}

	switch {
	case row.Path == "":
		if !filepath.IsLocal(filepath.Join(row.Collection, row.Item, row.Asset)) {
			return Row{}, fmt.Errorf("%s escapes the output directory", row)
		}
	case !filepath.IsAbs(row.Path) && !filepath.IsLocal(row.Path):
		return Row{}, fmt.Errorf("path %q escapes the output directory", row.Path)
	}
	return row, nil
}
