package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/fahmykhattab/docuai/internal/core"
	"github.com/fahmykhattab/docuai/internal/models"
)

type LLMFieldExtractor struct {
	llm core.LLMProvider
}

func NewFieldExtractor(llm core.LLMProvider) *LLMFieldExtractor {
	return &LLMFieldExtractor{llm: llm}
}

func (e *LLMFieldExtractor) ExtractFields(ctx context.Context, text string) []models.ExtractedField {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	prompt := buildFieldsPrompt(truncate(text, maxPromptChars))

	raw, err := e.llm.GenerateJSON(ctx, prompt)
	if err != nil {
		log.Printf("fields: model unavailable, using regex fallback: %v", err)
		return regexExtract(text)
	}

	fields, ok := parseFields(raw)
	if !ok {
		log.Printf("fields: unparseable response: %s", truncate(raw, 200))
		return regexExtract(text)
	}
	return fields
}

func buildFieldsPrompt(text string) string {
	return fmt.Sprintf(`Analyze the following document text and extract structured fields.

Look for these types of information:
- Dates (document date, due date, etc.)
- Amounts/prices (total, subtotal, tax)
- Invoice/reference numbers
- IBAN or bank account numbers
- Person names
- Company names
- Addresses

Respond ONLY with a valid JSON object containing a "fields" array. Each field should have:
- "name": descriptive field name (e.g., "Invoice Date", "Total Amount", "IBAN")
- "value": the extracted value as a string
- "type": one of "date", "amount", "invoice_number", "iban", "name", "address", "string"

Example response:
{"fields": [{"name": "Invoice Date", "value": "2024-01-15", "type": "date"}, {"name": "Total Amount", "value": "1,234.56 EUR", "type": "amount"}]}

Document text:
---
%s
---

JSON response:`, text)
}

func parseFields(raw string) ([]models.ExtractedField, bool) {
	var payload struct {
		Fields []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
			Type  string `json:"type"`
		} `json:"fields"`
	}

	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		match := embeddedJSON.FindString(raw)
		if match == "" {
			return nil, false
		}
		if err := json.Unmarshal([]byte(match), &payload); err != nil {
			return nil, false
		}
	}

	var out []models.ExtractedField
	for _, f := range payload.Fields {
		if f.Name == "" || f.Value == "" {
			continue
		}
		ftype := f.Type
		if ftype == "" {
			ftype = models.FieldTypeString
		}
		out = append(out, models.ExtractedField{Name: f.Name, Value: f.Value, Type: ftype})
	}
	return out, true
}

// Fallback patterns, applied to the untruncated text. Overlapping matches are
// kept: a value matched by two patterns yields two fields.
var (
	ibanPattern   = regexp.MustCompile(`\b[A-Z]{2}\d{2}[\s]?[\dA-Z]{4}[\s]?[\dA-Z]{4}[\s]?[\dA-Z]{4}[\s]?[\dA-Z]{0,16}\b`)
	datePatterns  = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b\d{2}[./]\d{2}[./]\d{4}\b`),
		regexp.MustCompile(`\b\d{2}\.\s?\w+\s?\d{4}\b`),
	}
	amountPattern  = regexp.MustCompile(`(?:EUR|USD|€|\$)\s?[\d.,]+|\b[\d.,]+\s?(?:EUR|USD|€|\$)`)
	invoicePattern = regexp.MustCompile(`(?i)(?:Invoice|Rechnung|Faktura|INV)[#:\s-]*(\S+)`)
)

// regexExtract is the deterministic fallback when the model is unavailable.
func regexExtract(text string) []models.ExtractedField {
	var fields []models.ExtractedField

	for _, m := range ibanPattern.FindAllString(text, -1) {
		fields = append(fields, models.ExtractedField{
			Name: "IBAN", Value: strings.TrimSpace(m), Type: models.FieldTypeIBAN,
		})
	}

	for _, p := range datePatterns {
		for _, m := range p.FindAllString(text, -1) {
			fields = append(fields, models.ExtractedField{
				Name: "Date", Value: strings.TrimSpace(m), Type: models.FieldTypeDate,
			})
		}
	}

	for _, m := range amountPattern.FindAllString(text, -1) {
		fields = append(fields, models.ExtractedField{
			Name: "Amount", Value: strings.TrimSpace(m), Type: models.FieldTypeAmount,
		})
	}

	for _, m := range invoicePattern.FindAllStringSubmatch(text, -1) {
		fields = append(fields, models.ExtractedField{
			Name: "Invoice Number", Value: strings.TrimSpace(m[1]), Type: models.FieldTypeInvoiceNumber,
		})
	}

	return fields
}

var _ core.FieldExtractor = (*LLMFieldExtractor)(nil)
