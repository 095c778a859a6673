// Package ingest converts raw CSV exports from the collection system and the
// bank into transaction records ready for matching. Amount and date
// normalization happens here; the matching engine assumes both are done.
package ingest

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/google/uuid"

	"payment-reconciliation-service/internal/models"
	apperrors "payment-reconciliation-service/pkg/errors"
	"payment-reconciliation-service/pkg/logger"
)

// Field names used in column mappings.
const (
	FieldID               = "id"
	FieldReference        = "reference"
	FieldPaymentReference = "payment_reference"
	FieldInvoiceNumber    = "invoice_number"
	FieldAmount           = "amount"
	FieldPaidAmount       = "paid_amount"
	FieldDate             = "date"
	FieldPaymentDate      = "payment_date"
	FieldDescription      = "description"
)

// ColumnMapping maps logical fields to the header aliases that may carry
// them. Header comparison is case-insensitive and whitespace-trimmed.
type ColumnMapping struct {
	Aliases  map[string][]string
	Required []string
}

// CollectionColumnMapping returns the default mapping for collection-system
// exports.
func CollectionColumnMapping() *ColumnMapping {
	return &ColumnMapping{
		Aliases: map[string][]string{
			FieldID:               {"id", "transaction_id", "tx_id"},
			FieldReference:        {"reference", "referencia", "ref"},
			FieldPaymentReference: {"payment_reference", "referencia_pago", "payment_ref"},
			FieldInvoiceNumber:    {"invoice_number", "factura", "invoice"},
			FieldAmount:           {"amount", "monto", "importe"},
			FieldPaidAmount:       {"paid_amount", "monto_pagado", "paid"},
			FieldDate:             {"date", "fecha"},
			FieldPaymentDate:      {"payment_date", "fecha_pago"},
			FieldDescription:      {"description", "descripcion", "concepto"},
		},
		Required: []string{FieldAmount, FieldDate},
	}
}

// BankColumnMapping returns the default mapping for bank statement exports.
func BankColumnMapping() *ColumnMapping {
	return &ColumnMapping{
		Aliases: map[string][]string{
			FieldID:          {"id", "movement_id"},
			FieldReference:   {"reference", "referencia", "ref", "nro_documento"},
			FieldAmount:      {"amount", "monto", "importe", "cargo_abono"},
			FieldDate:        {"date", "fecha", "fecha_operacion"},
			FieldDescription: {"description", "descripcion", "glosa", "concepto"},
		},
		Required: []string{FieldAmount, FieldDate, FieldDescription},
	}
}

// ParseStats summarizes one parse run. Row-level failures are collected
// rather than aborting the run; a feed with a few bad rows is still worth
// reconciling.
type ParseStats struct {
	TotalRows   int                          `json:"total_rows"`
	ParsedRows  int                          `json:"parsed_rows"`
	SkippedRows int                          `json:"skipped_rows"`
	Errors      []*apperrors.ReconcilerError `json:"errors,omitempty"`
}

// Parser reads one side's CSV export into transactions.
type Parser struct {
	side    models.Side
	mapping *ColumnMapping
	log     logger.Logger
}

// NewCollectionParser creates a parser for collection-system exports.
func NewCollectionParser() *Parser {
	return &Parser{
		side:    models.SideCollection,
		mapping: CollectionColumnMapping(),
		log:     logger.GetGlobalLogger().WithComponent("ingest"),
	}
}

// NewBankParser creates a parser for bank statement exports.
func NewBankParser() *Parser {
	return &Parser{
		side:    models.SideBank,
		mapping: BankColumnMapping(),
		log:     logger.GetGlobalLogger().WithComponent("ingest"),
	}
}

// WithMapping overrides the parser's column mapping.
func (p *Parser) WithMapping(mapping *ColumnMapping) *Parser {
	p.mapping = mapping
	return p
}

// Parse reads CSV data and returns the transactions it contains, tagged with
// the given scope. Rows that cannot be parsed are recorded in the stats and
// skipped.
func (p *Parser) Parse(r io.Reader, name, scope string) ([]*models.Transaction, *ParseStats, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, apperrors.ParseError(apperrors.CodeInvalidFormat, name, 0, "", "", nil).
			WithSuggestion("the file is empty; export it again with a header row")
	}
	if err != nil {
		return nil, nil, apperrors.ParseError(apperrors.CodeInvalidFormat, name, 1, "", "", err)
	}

	columns, err := p.resolveColumns(name, header)
	if err != nil {
		return nil, nil, err
	}

	stats := &ParseStats{}
	var transactions []*models.Transaction
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			stats.TotalRows++
			stats.SkippedRows++
			stats.Errors = append(stats.Errors,
				apperrors.ParseError(apperrors.CodeInvalidFormat, name, line, "", "", err))
			continue
		}

		stats.TotalRows++
		tx, rowErr := p.parseRow(name, line, scope, columns, record)
		if rowErr != nil {
			stats.SkippedRows++
			stats.Errors = append(stats.Errors, rowErr)
			continue
		}
		stats.ParsedRows++
		transactions = append(transactions, tx)
	}

	p.log.WithFields(logger.Fields{
		"file":    name,
		"side":    p.side,
		"parsed":  stats.ParsedRows,
		"skipped": stats.SkippedRows,
	}).Info("parse complete")

	return transactions, stats, nil
}

// resolveColumns maps each logical field to its column index in the header.
func (p *Parser) resolveColumns(name string, header []string) (map[string]int, error) {
	normalized := make(map[string]int, len(header))
	for i, h := range header {
		normalized[strings.ToLower(strings.TrimSpace(h))] = i
	}

	columns := make(map[string]int)
	for field, aliases := range p.mapping.Aliases {
		for _, alias := range aliases {
			if idx, ok := normalized[alias]; ok {
				columns[field] = idx
				break
			}
		}
	}

	for _, field := range p.mapping.Required {
		if _, ok := columns[field]; !ok {
			return nil, apperrors.ParseError(apperrors.CodeMissingColumn, name, 1, field, "", nil)
		}
	}

	return columns, nil
}

func (p *Parser) parseRow(name string, line int, scope string, columns map[string]int, record []string) (*models.Transaction, *apperrors.ReconcilerError) {
	value := func(field string) string {
		idx, ok := columns[field]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	amountRaw := value(FieldAmount)
	amount, err := ParseAmount(amountRaw)
	if err != nil {
		return nil, apperrors.ParseError(apperrors.CodeInvalidData, name, line, FieldAmount, amountRaw, err)
	}

	dateRaw := value(FieldDate)
	date, err := ParseDate(dateRaw)
	if err != nil {
		return nil, apperrors.ParseError(apperrors.CodeInvalidData, name, line, FieldDate, dateRaw, err)
	}

	id := value(FieldID)
	if id == "" {
		id = uuid.NewString()
	}

	tx := &models.Transaction{
		ID:          id,
		Scope:       scope,
		Side:        p.side,
		Reference:   value(FieldReference),
		Amount:      amount,
		Date:        date,
		Description: value(FieldDescription),
	}

	if p.side == models.SideCollection {
		tx.PaymentReference = value(FieldPaymentReference)
		tx.InvoiceNumber = value(FieldInvoiceNumber)

		if raw := value(FieldPaidAmount); raw != "" {
			paid, err := ParseAmount(raw)
			if err != nil {
				return nil, apperrors.ParseError(apperrors.CodeInvalidData, name, line, FieldPaidAmount, raw, err)
			}
			tx.PaidAmount = &paid
		}

		if raw := value(FieldPaymentDate); raw != "" {
			paymentDate, err := ParseDate(raw)
			if err != nil {
				return nil, apperrors.ParseError(apperrors.CodeInvalidData, name, line, FieldPaymentDate, raw, err)
			}
			tx.PaymentDate = &paymentDate
		}
	}

	if err := tx.Validate(); err != nil {
		return nil, apperrors.ParseError(apperrors.CodeInvalidData, name, line, "", "", err)
	}

	return tx, nil
}
