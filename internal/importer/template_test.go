// File path: internal/importer/template_test.go
package importer

import (
	"testing"

	"github.com/chatforge/kbcore/internal/ledger"
)

func TestDetectTemplateByWidestRow(t *testing.T) {
	faqRows := [][]string{{"q", "a"}, {"q2", "a2", "link"}}
	if got := DetectTemplate(faqRows); got != TemplateFAQ {
		t.Fatalf("expected narrow rows to detect faq, got %q", got)
	}
	productRows := [][]string{{"q", "a"}, {"widget", "sku-1", "9.99", "details", "link"}}
	if got := DetectTemplate(productRows); got != TemplateProduct {
		t.Fatalf("expected a five-column row to detect product, got %q", got)
	}
}

func TestFAQRecordMapsCellsPositionally(t *testing.T) {
	record, err := TemplateFAQ.Record("t1", []string{" What? ", "That.", "https://x", "img.png"})
	if err != nil {
		t.Fatalf("record returned error: %v", err)
	}
	if record.Kind != ledger.KindFAQ {
		t.Fatalf("expected faq kind, got %q", record.Kind)
	}
	if record.Question != "What?" || record.Answer != "That." {
		t.Fatalf("expected trimmed question/answer, got %q / %q", record.Question, record.Answer)
	}
	if record.Link != "https://x" || record.Image != "img.png" {
		t.Fatalf("expected link and image mapped, got %q / %q", record.Link, record.Image)
	}
	if record.Indexed {
		t.Fatalf("expected imported records to start unindexed")
	}
}

func TestProductRecordToleratesMissingTrailingCells(t *testing.T) {
	record, err := TemplateProduct.Record("t1", []string{"Widget", "SKU-1"})
	if err != nil {
		t.Fatalf("record returned error: %v", err)
	}
	if record.Kind != ledger.KindProduct || record.ProductName != "Widget" || record.SKU != "SKU-1" {
		t.Fatalf("unexpected mapping: %+v", record)
	}
	if record.Price != "" || record.Details != "" {
		t.Fatalf("expected absent cells to map to empty fields, got %+v", record)
	}
}

func TestFAQRecordRejectsEmptyQuestionOrAnswer(t *testing.T) {
	if _, err := TemplateFAQ.Record("t1", []string{"", "answer"}); err == nil {
		t.Fatalf("expected empty question rejected")
	}
	if _, err := TemplateFAQ.Record("t1", []string{"question", "  "}); err == nil {
		t.Fatalf("expected empty answer rejected")
	}
}
