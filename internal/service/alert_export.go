package service

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"safetysos/internal/model"
)

const alertSheet = "SOS Alerts"

var alertExportHeader = []string{
	"Alert ID",
	"Status",
	"User",
	"Email",
	"Employee ID",
	"Latitude",
	"Longitude",
	"Address",
	"Started At",
	"Cancelled At",
	"Resolved At",
	"Resolved By",
}

var alertExportWidths = []float64{38, 12, 24, 30, 16, 12, 12, 40, 20, 20, 20, 38}

// renderAlertWorkbook writes alerts to a single-sheet workbook with a frozen, styled header row.
func renderAlertWorkbook(alerts []model.SOSAlert, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	// The file stays open until WriteTo has run.

	index, err := f.NewSheet(alertSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#FDE2E2"},
			Pattern: 1,
		},
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
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, header := range alertExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(alertSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("set header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(alertSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("style header %s: %w", cell, err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("column name: %w", err)
		}
		if err := f.SetColWidth(alertSheet, name, name, alertExportWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i := range alerts {
		row := i + 2
		for col, value := range alertRow(&alerts[i]) {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(alertSheet, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(alertSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "SOS alerts",
		Created: generatedAt.Format(time.RFC3339),
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("set document properties: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func alertRow(a *model.SOSAlert) []interface{} {
	row := make([]interface{}, len(alertExportHeader))
	row[0] = a.ID
	row[1] = string(a.Status)
	if a.User != nil {
		row[2] = a.User.Name
		row[3] = deref(a.User.Email)
		row[4] = deref(a.User.EmployeeID)
	}
	if a.Latitude != nil && a.Longitude != nil {
		row[5] = *a.Latitude
		row[6] = *a.Longitude
	}
	row[7] = deref(a.Address)
	row[8] = formatTime(&a.StartedAt)
	row[9] = formatTime(a.CancelledAt)
	row[10] = formatTime(a.ResolvedAt)
	row[11] = deref(a.ResolvedBy)
	return row
}

func deref(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func formatTime(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
