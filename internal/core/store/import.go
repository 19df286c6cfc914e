package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/solatis/segmentkeeper/internal/rules"
	"github.com/solatis/segmentkeeper/internal/types"
)

// maxImportLine bounds a single JSONL record.
const maxImportLine = 1 << 20

// CustomerWriter persists customers. Satisfied by Store.
type CustomerWriter interface {
	CreateCustomer(ctx context.Context, c *types.Customer) error
}

// customerRecord is one JSONL line. lastPurchaseDate accepts YYYY-MM-DD or RFC 3339.
type customerRecord struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	TotalSpend       float64 `json:"totalSpend"`
	VisitCount       int     `json:"visitCount"`
	LastPurchaseDate string  `json:"lastPurchaseDate"`
}

func (r customerRecord) toCustomer() (*types.Customer, error) {
	if r.TotalSpend < 0 {
		return nil, fmt.Errorf("totalSpend must not be negative")
	}
	if r.VisitCount < 0 {
		return nil, fmt.Errorf("visitCount must not be negative")
	}

	c := &types.Customer{
		ID:         types.CustomerID(strings.TrimSpace(r.ID)),
		Name:       strings.TrimSpace(r.Name),
		Email:      strings.TrimSpace(r.Email),
		TotalSpend: r.TotalSpend,
		VisitCount: r.VisitCount,
	}
	if date := strings.TrimSpace(r.LastPurchaseDate); date != "" {
		v, err := rules.Coerce(date, types.KindDate)
		if err != nil {
			return nil, fmt.Errorf("lastPurchaseDate: %w", err)
		}
		c.LastPurchaseDate = v.(time.Time)
	}
	return c, nil
}

// ImportCustomers reads one JSON customer per line from r and writes each to w.
// Blank lines are skipped. Stops at the first malformed line, reporting its number.
func ImportCustomers(ctx context.Context, w CustomerWriter, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)

	imported := 0
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var rec customerRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return imported, fmt.Errorf("line %d: invalid JSON: %w", line, err)
		}
		c, err := rec.toCustomer()
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		if err := w.CreateCustomer(ctx, c); err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		imported++
	}
	if err := scanner.Err(); err != nil {
		return imported, fmt.Errorf("failed to read input: %w", err)
	}
	return imported, nil
}
