// Package export renders application lists as spreadsheets or CSV for staff download.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"housing-listings-backend/internal/dto"
)

const sheetName = "Applications"

// ApplicationHeader is the column order of the applications export.
var ApplicationHeader = []string{
	"Confirmation Code",
	"Status",
	"Submission Type",
	"Submission Date",
	"First Name",
	"Last Name",
	"Date of Birth",
	"Email",
	"Phone",
	"Address",
	"Household Size",
	"Income",
	"Marked As Duplicate",
}

var columnWidths = []float64{18, 12, 15, 20, 16, 16, 14, 28, 16, 36, 14, 14, 18}

// Applications writes one row per application below a frozen, styled header.
func Applications(apps []dto.Application) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range ApplicationHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, name, name, columnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, a := range apps {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		row := applicationRow(a)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

// ApplicationsCSV writes the same columns as Applications as comma-separated text.
func ApplicationsCSV(apps []dto.Application) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ApplicationHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, a := range apps {
		row := applicationRow(a)
		record := make([]string, len(row))
		for j, v := range row {
			record[j] = fmt.Sprint(v)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func applicationRow(a dto.Application) []any {
	submitted := ""
	if a.SubmissionDate != nil {
		submitted = a.SubmissionDate.UTC().Format("2006-01-02 15:04:05")
	}
	dob := ""
	if a.Applicant.BirthYear != "" {
		dob = fmt.Sprintf("%s-%s-%s", a.Applicant.BirthYear, a.Applicant.BirthMonth, a.Applicant.BirthDay)
	}
	address := strings.TrimSpace(strings.Join(nonEmpty(a.Applicant.Street, a.Applicant.City, a.Applicant.State, a.Applicant.ZipCode), ", "))
	duplicate := "No"
	if a.MarkedAsDuplicate {
		duplicate = "Yes"
	}
	return []any{
		a.ConfirmationCode,
		a.Status,
		a.SubmissionType,
		submitted,
		a.Applicant.FirstName,
		a.Applicant.LastName,
		dob,
		a.Applicant.EmailAddress,
		a.Applicant.PhoneNumber,
		address,
		a.HouseholdSize,
		a.Income,
		duplicate,
	}
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
