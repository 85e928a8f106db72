package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"shoplite/internal/domain"
	itemsvc "shoplite/internal/service/item"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ItemWriter creates catalog items. The item service satisfies it, so rows go
// through the same validation as the API.
type ItemWriter interface {
	Create(ctx context.Context, in itemsvc.CreateInput) (*domain.Item, error)
}

// CSVImporter reads a catalog CSV with the columns title, description, price,
// category, imageUrl and stock. Only title and price are required.
type CSVImporter struct {
	reader *csv.Reader
	items  ItemWriter
	logger *zap.Logger

	// SkipInvalid logs and skips rows that fail validation instead of
	// aborting the import.
	SkipInvalid bool
}

func NewCSVImporter(r io.Reader, items ItemWriter, logger *zap.Logger) *CSVImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{reader: csvr, items: items, logger: logger}
}

// Result summarizes an import run.
type Result struct {
	Imported int
	Skipped  int
}

var headerAliases = map[string]string{
	"name":      "title",
	"image_url": "imageurl",
	"image":     "imageurl",
}

// Run reads every row and creates one item per row.
func (i *CSVImporter) Run(ctx context.Context) (Result, error) {
	var res Result
	headers, err := i.reader.Read()
	if err != nil {
		return res, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, required := range []string{"title", "price"} {
		if _, ok := index[required]; !ok {
			return res, fmt.Errorf("missing %q column", required)
		}
	}

	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return res, fmt.Errorf("read row %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		in, err := parseRow(record, index)
		if err == nil {
			_, err = i.items.Create(ctx, in)
		}
		if err != nil {
			var verr *domain.ValidationError
			if i.SkipInvalid && errors.As(err, &verr) {
				i.logger.Warn("skipping invalid row", zap.Int("line", line), zap.Error(err))
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("row %d: %w", line, err)
		}
		res.Imported++
	}
	return res, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if alias, ok := headerAliases[key]; ok {
			key = alias
		}
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func parseRow(record []string, index map[string]int) (itemsvc.CreateInput, error) {
	in := itemsvc.CreateInput{
		Title:       pick(record, index, "title"),
		Description: pick(record, index, "description"),
		Category:    pick(record, index, "category"),
		ImageURL:    pick(record, index, "imageurl"),
	}

	if raw := pick(record, index, "price"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return in, domain.InvalidField("price", "Price must be a non-negative number")
		}
		in.Price = &price
	}
	if raw := pick(record, index, "stock"); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			return in, domain.InvalidField("stock", "Stock must be a non-negative integer")
		}
		in.Stock = &stock
	}
	return in, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
