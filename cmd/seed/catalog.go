package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ikkim/atelier-backend/internal/app/model"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// 시트 헤더 (첫 행). 순서는 자유, 이름으로 찾는다.
var catalogColumns = []string{
	"title", "category", "price", "medium", "dimensions", "year", "on_sale", "featured", "image_url",
}

var requiredColumns = []string{"title", "category", "price"}

type skippedRow struct {
	Line   int
	Reason string
}

type catalogImport struct {
	Products []model.Product
	Skipped  []skippedRow
}

func readCatalogFromXLSX(filePath string) (*catalogImport, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	// 첫 번째 시트만 읽는다
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	return parseCatalogRows(rows)
}

func parseCatalogRows(rows [][]string) (*catalogImport, error) {
	index := make(map[string]int)
	for i, header := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing required column %q (expected %s)", col, strings.Join(catalogColumns, ", "))
		}
	}

	result := &catalogImport{}
	seen := make(map[string]bool) // 제목 중복 제거용

	for i, row := range rows[1:] {
		line := i + 2
		cell := func(col string) string {
			idx, ok := index[col]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		if strings.Join(row, "") == "" {
			continue
		}

		product, err := productFromRow(cell)
		if err != nil {
			result.Skipped = append(result.Skipped, skippedRow{Line: line, Reason: err.Error()})
			continue
		}

		key := strings.ToLower(product.Title)
		if seen[key] {
			result.Skipped = append(result.Skipped, skippedRow{Line: line, Reason: "duplicate title"})
			continue
		}
		seen[key] = true

		result.Products = append(result.Products, *product)
	}

	return result, nil
}

func productFromRow(cell func(string) string) (*model.Product, error) {
	title := cell("title")
	if title == "" {
		return nil, fmt.Errorf("title is empty")
	}

	category := model.ProductCategory(strings.ToLower(cell("category")))
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", cell("category"))
	}

	price, err := decimal.NewFromString(strings.NewReplacer("$", "", ",", "").Replace(cell("price")))
	if err != nil {
		return nil, fmt.Errorf("invalid price %q", cell("price"))
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("negative price")
	}

	product := &model.Product{
		Title:              title,
		Category:           category,
		Price:              price,
		Medium:             optional(cell("medium")),
		Dimensions:         optional(cell("dimensions")),
		ImageURL:           optional(cell("image_url")),
		OnSale:             parseFlag(cell("on_sale")),
		IsFeatured:         parseFlag(cell("featured")),
		AvailabilityStatus: model.AvailabilityAvailable,
	}

	if raw := cell("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 0 {
			return nil, fmt.Errorf("invalid year %q", raw)
		}
		product.YearCreated = &year
	}

	return product, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// parseFlag accepts the spellings a spreadsheet tends to hold
func parseFlag(v string) bool {
	switch strings.ToLower(v) {
	case "1", "y", "yes", "true", "o":
		return true
	}
	return false
}
