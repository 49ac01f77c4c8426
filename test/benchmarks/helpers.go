// test/benchmarks/helpers.go
package benchmarks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// invoiceLine is the parsed form of one supplier invoice row.
type invoiceLine struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

var (
	benchPriceRe    = regexp.MustCompile(`\$?\s*\d{1,3}(?:,\d{3})*\.\d{2}\s*$`)
	benchQuantityRe = regexp.MustCompile(`\b(\d+)\s*[xX]\s*$`)
)

// parseInvoiceContent runs the same shape of line scan the import
// pipeline does, kept here so the parsing cost can be measured without
// standing up a worker.
func parseInvoiceContent(content []byte) []invoiceLine {
	var items []invoiceLine

	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		priceMatch := benchPriceRe.FindString(line)
		if priceMatch == "" {
			continue
		}

		rest := strings.TrimSpace(strings.TrimSuffix(line, priceMatch))
		quantity := 1
		if qm := benchQuantityRe.FindStringSubmatch(rest); qm != nil {
			if q, err := strconv.Atoi(qm[1]); err == nil && q > 0 {
				quantity = q
			}
			rest = strings.TrimSpace(benchQuantityRe.ReplaceAllString(rest, ""))
		}

		price, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(priceMatch), "$"), ",", ""))
		if err != nil {
			continue
		}

		items = append(items, invoiceLine{
			Name:      rest,
			Quantity:  quantity,
			UnitPrice: price,
		})
	}

	return items
}

// createLargeInvoiceContent builds a synthetic supplier invoice with the
// requested number of line items.
func createLargeInvoiceContent(numItems int) []byte {
	var content strings.Builder

	content.WriteString("INVOICE #2026-0815\n")
	content.WriteString("ITEM DESCRIPTION QTY PRICE\n")
	content.WriteString("=====================================\n\n")

	names := []string{
		"Paracetamol 500mg Tablets",
		"Amoxicillin 250mg Capsules",
		"Cetirizine Hydrochloride 10mg",
		"Omeprazole 20mg Capsules",
		"Metformin Hydrochloride 500mg",
		"Azithromycin 500mg Tablets",
		"Salbutamol Inhaler 100mcg",
		"Losartan Potassium 50mg",
		"Atorvastatin 10mg Tablets",
		"Esomeprazole 40mg Capsules",
	}

	for i := 0; i < numItems; i++ {
		name := names[i%len(names)]
		content.WriteString(fmt.Sprintf("%s %d x $%.2f\n", name, 1+i%20, 1.50+float64(i%50)*0.25))
	}

	content.WriteString("\nSUBTOTAL $12,345.00\n")

	return []byte(content.String())
}
