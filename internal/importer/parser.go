// File path: internal/importer/parser.go
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ParseTable reads tabular data into rows of cell strings. The splitter is
// quote-aware: a quoted field may contain embedded delimiters and the quotes
// themselves are stripped, so `"a,b","c"` parses to ["a,b" "c"]. Rows with no
// non-empty cell are dropped. Any malformed input aborts the whole parse.
func ParseTable(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse table: %w", err)
		}
		if emptyRow(record) {
			continue
		}
		rows = append(rows, record)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("parse table: no rows")
	}
	return rows, nil
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
