// Package report renders duplicate analysis results as spreadsheets.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/syed-c/standzon-sub002/pkg/models"
)

// SheetName is the worksheet holding one row per duplicate group member
const SheetName = "Duplicates"

// ContentType is the MIME type of the generated workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var headers = []string{
	"Group ID",
	"Reason",
	"Confidence",
	"Group Size",
	"Builder ID",
	"Company Name",
	"Email",
	"Phone",
	"City",
	"Country",
	"Verified",
	"Rating",
	"Projects Completed",
}

// GroupsXLSX returns a workbook listing every member of every group, groups in order
func GroupsXLSX(groups []models.DuplicateGroup) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	row := 2
	for _, g := range groups {
		for _, b := range g.Duplicates {
			values := []any{
				g.ID,
				string(g.Reason),
				string(g.Confidence),
				len(g.Duplicates),
				b.ID,
				b.CompanyName,
				b.Email,
				b.Phone,
				b.City,
				b.Country,
				b.Verified,
				b.Rating,
				b.ProjectsCompleted,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				_ = f.SetCellValue(SheetName, cell, v)
			}
			row++
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 22) // group id
	_ = f.SetColWidth(SheetName, "B", "B", 30) // reason
	_ = f.SetColWidth(SheetName, "E", "E", 38) // builder id
	_ = f.SetColWidth(SheetName, "F", "G", 32)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
