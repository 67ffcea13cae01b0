// Package xlsx renders an extraction grid to a styled single-sheet workbook.
//
// Styling mirrors the product's spreadsheet output: every cell gets a thin
// black border, detected header rows are bold on a light grey fill, and
// columns auto-fit their content between a floor of 10 and a cap of 50.
package xlsx

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	pdfconverter "github.com/LeThienKhiem/pdf-converter"
)

// Filename is the download name used by the export endpoint.
const Filename = "extracted-data.xlsx"

const (
	sheetName       = "Sheet1"
	defaultColWidth = 10
	maxColWidth     = 50
	headerFillRGB   = "E9E9E9"
)

var (
	headerPrefixRe = regexp.MustCompile(`(?i)^(Part|Section|Schedule|Invoice)\s`)
	partNumberRe   = regexp.MustCompile(`(?i)^Part\s+[IVXLCDM0-9]+$`)
)

// isHeaderRow decides whether a row gets header styling. Row 0 always does.
// Other rows qualify by their first cell: a known section keyword prefix, a
// "Part <roman-or-digit>" token, or a short comma-free label.
func isHeaderRow(row []*string, rowIndex int) bool {
	if rowIndex == 0 {
		return true
	}
	var first string
	if len(row) > 0 {
		first = strings.TrimSpace(pdfconverter.CellText(row[0]))
	}
	if first == "" {
		return false
	}
	if headerPrefixRe.MatchString(first) || partNumberRe.MatchString(first) {
		return true
	}
	return utf16Len(first) <= 20 && !strings.Contains(first, ",")
}

// utf16Len counts UTF-16 code units, the length unit the consuming
// spreadsheet clients measure labels in. Characters outside the BMP count
// as two units.
func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// Write builds the workbook and returns the file bytes. An empty grid
// produces a valid empty sheet.
func Write(g pdfconverter.Grid) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	borders := []excelize.Border{
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	defaultStyle, err := f.NewStyle(&excelize.Style{
		Border:    borders,
		Alignment: &excelize.Alignment{Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("default style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Border:    borders,
		Alignment: &excelize.Alignment{Vertical: "center"},
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFillRGB}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	cols := g.ColumnCount()
	widths := make([]float64, cols)
	for j := range widths {
		widths[j] = defaultColWidth
	}

	for i, row := range g {
		style := defaultStyle
		if isHeaderRow(row, i) {
			style = headerStyle
		}
		for j := 0; j < cols; j++ {
			var text string
			if j < len(row) {
				text = pdfconverter.CellText(row[j])
			}
			if text != "" {
				cell, err := excelize.CoordinatesToCellName(j+1, i+1)
				if err != nil {
					return nil, err
				}
				if err := f.SetCellValue(sheetName, cell, text); err != nil {
					return nil, err
				}
			}
			if l := float64(utf8.RuneCountInString(text)); l > widths[j] {
				widths[j] = min(l+1, maxColWidth)
			}
		}
		if cols > 0 {
			first, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return nil, err
			}
			last, err := excelize.CoordinatesToCellName(cols, i+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellStyle(sheetName, first, last, style); err != nil {
				return nil, err
			}
		}
	}

	for j, w := range widths {
		col, err := excelize.ColumnNumberToName(j + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
