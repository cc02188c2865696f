package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportBooksToExcel dumps the whole catalog into an .xlsx report and
// returns its path.
func (s *PostgresStorage) ExportBooksToExcel(ctx context.Context) (string, error) {
	books, err := s.ListBooks(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch books: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet("Books")
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}

	headers := []string{
		"ID", "Title", "Price", "Status", "Renter", "Phone", "Image URL", "Created At",
	}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue("Books", cell, header)
	}

	for row, book := range books {
		renter := ""
		if book.RenterName != nil {
			renter = *book.RenterName
		}
		phone := ""
		if book.RenterPhone != nil {
			phone = *book.RenterPhone
		}

		data := []interface{}{
			book.ID.String(),
			book.Title,
			book.Price,
			book.Status,
			renter,
			phone,
			book.ImageURL,
			book.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, value := range data {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue("Books", cell, value)
		}
	}

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellStyle("Books", "A1", "H1", style)
	f.SetActiveSheet(index)

	if err := os.MkdirAll("reports", 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	filepath := fmt.Sprintf("reports/books_%s.xlsx", time.Now().Format("20060102_1504"))
	if err := f.SaveAs(filepath); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}

	return filepath, nil
}
