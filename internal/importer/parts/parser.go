// Package parts parses parts lists exported by suppliers into priced rows.
package parts

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	enc "github.com/MrJamesThe3rd/garage/internal/encoding"
)

var ErrUnknownFormat = errors.New("no matching parts list format found")

// Row is one priced part from a supplier file.
type Row struct {
	Line        int
	SKU         string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     *decimal.Decimal
}

// Parser reads supplier CSV exports. The separator and column layout are detected
// by matching header rows against known profiles.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse returns the rows of r and the charset the file was decoded from.
func (p *Parser) Parse(r io.Reader) ([]Row, string, error) {
	utf8r, charset, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, "", fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}

	var readErr error

	for _, comma := range []rune{';', ','} {
		records, err := readCSV(data, comma)
		if err != nil {
			readErr = err
			continue
		}

		profile, cols, headerIdx := detectProfile(records, comma)
		if profile == nil {
			continue
		}

		rows, err := parseRows(profile, cols, records[headerIdx+1:])

		return rows, charset, err
	}

	if readErr != nil {
		return nil, charset, fmt.Errorf("read csv: %w", readErr)
	}

	return nil, charset, ErrUnknownFormat
}

// record is a CSV row with the file line it started on.
type record struct {
	line  int
	cells []string
}

func readCSV(data []byte, comma rune) ([]record, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records []record

	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}

		if err != nil {
			return nil, err
		}

		line, _ := reader.FieldPos(0)
		records = append(records, record{line: line, cells: cells})
	}
}

// colIndex maps lower-cased column names to their index in the row.
type colIndex map[string]int

func (c colIndex) index(name string) int {
	if name == "" {
		return -1
	}

	if i, ok := c[strings.ToLower(name)]; ok {
		return i
	}

	return -1
}

func detectProfile(records []record, comma rune) (*Profile, colIndex, int) {
	for rowIdx, rec := range records {
		cols := make(colIndex)

		for i, cell := range rec.cells {
			if name := strings.ToLower(strings.TrimSpace(cell)); name != "" {
				cols[name] = i
			}
		}

		for i := range profiles {
			if profiles[i].Comma == comma && matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if cols.index(name) < 0 {
			return false
		}
	}

	return true
}

// parseRows extracts parts below the header. Rows without a quantity are treated as
// subtotals or footers and skipped; a row with a quantity but a bad price is an error.
func parseRows(p *Profile, cols colIndex, records []record) ([]Row, error) {
	skuIdx := cols.index(p.SKUCol)
	descIdx := cols.index(p.DescCol)
	qtyIdx := cols.index(p.QtyCol)
	taxIdx := cols.index(p.TaxCol)

	var rows []Row

	for _, rec := range records {
		lineNum, cells := rec.line, rec.cells

		qtyCell := cellValue(cells, qtyIdx)
		if qtyCell == "" {
			continue
		}

		qty, err := parseNumber(qtyCell, p.DecimalComma)
		if err != nil {
			continue
		}

		desc := cellValue(cells, descIdx)
		if desc == "" {
			return nil, fmt.Errorf("line %d: missing description", lineNum)
		}

		if !qty.IsPositive() {
			return nil, fmt.Errorf("line %d: quantity must be greater than zero", lineNum)
		}

		unit, err := unitPrice(p, cols, cells, qty)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		row := Row{
			Line:        lineNum,
			SKU:         cellValue(cells, skuIdx),
			Description: desc,
			Quantity:    qty,
			UnitPrice:   unit,
		}

		if s := cellValue(cells, taxIdx); s != "" {
			rate, err := parseNumber(s, p.DecimalComma)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid tax rate %q", lineNum, s)
			}

			row.TaxRate = &rate
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func unitPrice(p *Profile, cols colIndex, cells []string, qty decimal.Decimal) (decimal.Decimal, error) {
	col := p.UnitPriceCol
	if p.PriceMode == priceLineTotal {
		col = p.LineTotalCol
	}

	s := cellValue(cells, cols.index(col))
	if s == "" {
		return decimal.Zero, nil
	}

	d, err := parseNumber(s, p.DecimalComma)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q", s)
	}

	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %q", s)
	}

	if p.PriceMode == priceLineTotal {
		return d.DivRound(qty, 2), nil
	}

	return d, nil
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
