// File path: internal/importer/template.go
package importer

import (
	"fmt"
	"strings"

	"github.com/chatforge/kbcore/internal/ledger"
)

// Template names one of the two fixed column schemas rows can be mapped onto.
type Template string

const (
	// TemplateFAQ maps columns onto question/answer/link/image.
	TemplateFAQ Template = "faq"
	// TemplateProduct maps columns onto name/sku/price/details/link/image.
	TemplateProduct Template = "product"
)

// Valid reports whether the template is one of the two supported schemas.
func (t Template) Valid() bool {
	return t == TemplateFAQ || t == TemplateProduct
}

// Fields returns the ordered column names cells are positionally mapped to.
func (t Template) Fields() []string {
	switch t {
	case TemplateFAQ:
		return []string{"question", "answer", "link", "image"}
	case TemplateProduct:
		return []string{"name", "sku", "price", "details", "link", "image"}
	}
	return nil
}

// DetectTemplate auto-selects a template from the widest row: five or more
// columns look product-shaped, anything narrower FAQ-shaped. The operator can
// override the choice before commit.
func DetectTemplate(rows [][]string) Template {
	widest := 0
	for _, row := range rows {
		if len(row) > widest {
			widest = len(row)
		}
	}
	if widest >= 5 {
		return TemplateProduct
	}
	return TemplateFAQ
}

// Record positionally maps one row's cells onto the template's fields,
// producing a content record owned by the tenant with indexed unset.
func (t Template) Record(tenantID string, row []string) (ledger.ContentRecord, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	record := ledger.ContentRecord{TenantID: tenantID, Indexed: false}
	switch t {
	case TemplateFAQ:
		record.Kind = ledger.KindFAQ
		record.Question = cell(0)
		record.Answer = cell(1)
		record.Link = cell(2)
		record.Image = cell(3)
	case TemplateProduct:
		record.Kind = ledger.KindProduct
		record.ProductName = cell(0)
		record.SKU = cell(1)
		record.Price = cell(2)
		record.Details = cell(3)
		record.Link = cell(4)
		record.Image = cell(5)
	default:
		return ledger.ContentRecord{}, fmt.Errorf("invalid template %q", t)
	}
	if err := ledger.ValidateContent(record); err != nil {
		return ledger.ContentRecord{}, err
	}
	return record, nil
}
