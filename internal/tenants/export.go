package tenants

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

var exportHeaders = []string{
	"Name", "Slug", "Status", "Plan", "Owner", "Owner Email", "Max Users", "Created",
}

// ExportExcel writes the tenant roster as an Excel workbook
func ExportExcel(tenants []Tenant, w io.Writer) error {
	file := excelize.NewFile()
	defer file.Close()

	const sheet = "Tenants"
	file.SetSheetName("Sheet1", sheet)

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		_ = file.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for row, tenant := range tenants {
		values := []interface{}{
			tenant.Name,
			tenant.Slug,
			string(tenant.Status),
			tenant.Plan,
			tenant.OwnerName,
			tenant.OwnerEmail,
			tenant.MaxUsers,
			tenant.CreatedAt.Format("2006-01-02"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row+1, err)
			}
		}
	}

	if err := file.AutoFilter(sheet, "A1:H1", nil); err != nil {
		return fmt.Errorf("failed to set auto filter: %w", err)
	}

	return file.Write(w)
}
