package export

import (
	"fmt"
	"io"

	"github.com/International-Combat-Archery-Alliance/team-tickets/registration"
	"github.com/xuri/excelize/v2"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Report struct {
	SheetName string
	FileName  string
}

var (
	AttendanceReport    = Report{SheetName: "Attendance", FileName: "Attendance.xlsx"}
	RegistrationsReport = Report{SheetName: "Registrations", FileName: "All_Registrations.xlsx"}
)

type column struct {
	header string
	width  float64
	value  func(registration.Registration) any
}

var columns = []column{
	{header: "Team Name", width: 20, value: func(r registration.Registration) any { return r.TeamName }},
	{header: "Leader Name", width: 20, value: func(r registration.Registration) any { return r.Leader.Name }},
	{header: "Leader Email", width: 25, value: func(r registration.Registration) any { return r.Leader.Email }},
	{header: "Leader Mobile", width: 15, value: func(r registration.Registration) any { return r.Leader.Mobile }},
	{header: "Leader Reg No", width: 18, value: func(r registration.Registration) any { return r.Leader.RegNo }},
	{header: "Transaction ID", width: 25, value: func(r registration.Registration) any { return r.TransactionID }},
	{header: "Scanned", width: 10, value: func(r registration.Registration) any { return yesNo(r.Scanned) }},
}

func Headers() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.header
	}
	return out
}

// Write renders one row per registration under the fixed header row.
func Write(w io.Writer, report Report, regs []registration.Registration) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), report.SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c.header

		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to name column %d: %w", i+1, err)
		}
		if err := f.SetColWidth(report.SheetName, col, col, c.width); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}
	if err := f.SetSheetRow(report.SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, reg := range regs {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = c.value(reg)
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(report.SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to serialize workbook: %w", err)
	}

	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
