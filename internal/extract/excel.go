package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel flattens a workbook into text, one line per row with cells
// tab-separated and sheets separated by a blank line. Fee schedules and
// limit tables ship as spreadsheets, so cell order is preserved.
func extractExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for si, sheet := range f.GetSheetList() {
		if si > 0 {
			b.WriteByte('\n')
		}
		rows, err := f.Rows(sheet)
		if err != nil {
			return "", fmt.Errorf("sheet %q: %w", sheet, err)
		}
		for rows.Next() {
			cells, err := rows.Columns()
			if err != nil {
				_ = rows.Close()
				return "", fmt.Errorf("sheet %q: %w", sheet, err)
			}
			b.WriteString(strings.Join(cells, "\t"))
			b.WriteByte('\n')
		}
		if err := rows.Close(); err != nil {
			return "", fmt.Errorf("sheet %q: %w", sheet, err)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
