package parts

// priceMode determines how the unit price is read from a row.
type priceMode int

const (
	// priceUnit means the file carries a unit price column.
	priceUnit priceMode = iota
	// priceLineTotal means only the line total is given; the unit price is total / quantity.
	priceLineTotal
)

// Profile describes the column layout of one supplier export format.
type Profile struct {
	Name         string
	Comma        rune
	DecimalComma bool
	SKUCol       string
	DescCol      string
	QtyCol       string
	PriceMode    priceMode
	UnitPriceCol string // used when PriceMode == priceUnit
	LineTotalCol string // used when PriceMode == priceLineTotal
	TaxCol       string // optional
}

func (p Profile) requiredCols() []string {
	cols := []string{p.DescCol, p.QtyCol}

	switch p.PriceMode {
	case priceUnit:
		cols = append(cols, p.UnitPriceCol)
	case priceLineTotal:
		cols = append(cols, p.LineTotalCol)
	}

	return cols
}

// profiles is tried in order; put formats with more specific headers first.
var profiles = []Profile{
	{
		Name:         "distribuidor",
		Comma:        ';',
		DecimalComma: true,
		SKUCol:       "Referência",
		DescCol:      "Descrição",
		QtyCol:       "Qtd.",
		PriceMode:    priceUnit,
		UnitPriceCol: "Preço Unit.",
		TaxCol:       "IVA %",
	},
	{
		Name:         "distribuidor-totais",
		Comma:        ';',
		DecimalComma: true,
		SKUCol:       "Referência",
		DescCol:      "Descrição",
		QtyCol:       "Qtd.",
		PriceMode:    priceLineTotal,
		LineTotalCol: "Total Líquido",
		TaxCol:       "IVA %",
	},
	{
		Name:         "generic",
		Comma:        ',',
		SKUCol:       "SKU",
		DescCol:      "Description",
		QtyCol:       "Qty",
		PriceMode:    priceUnit,
		UnitPriceCol: "Unit Price",
		TaxCol:       "Tax %",
	},
}
