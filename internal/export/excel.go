// Package export writes the visible schedule as an Excel workbook: a
// grid sheet mirroring the calendar plus a flat appointment list.
package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"smiles/internal/model"
	"smiles/internal/schedule"
)

// gridFile wraps excelize with a sheet and row cursor.
type gridFile struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func newGridFile() *gridFile {
	return &gridFile{file: excelize.NewFile()}
}

func (g *gridFile) addSheet(name string) error {
	// Truncate sheet name to 31 chars (Excel limit)
	if len(name) > 31 {
		name = name[:31]
	}

	if g.currentSheet == "" {
		// Rename default sheet
		g.file.SetSheetName("Sheet1", name)
	} else {
		_, err := g.file.NewSheet(name)
		if err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	g.currentSheet = name
	g.currentRow = 1
	return nil
}

func (g *gridFile) writeHeader(columns []string) error {
	if g.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, g.currentRow)
		if err != nil {
			return err
		}
		if err := g.file.SetCellValue(g.currentSheet, cell, col); err != nil {
			return err
		}
	}

	style, err := g.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, g.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), g.currentRow)
		_ = g.file.SetCellStyle(g.currentSheet, startCell, endCell, style)
	}

	g.currentRow++
	return nil
}

func (g *gridFile) writeRow(row []interface{}) error {
	if g.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, g.currentRow)
		if err != nil {
			return err
		}
		if err := g.file.SetCellValue(g.currentSheet, cell, val); err != nil {
			return err
		}
	}

	g.currentRow++
	return nil
}

// WriteSchedule writes the range as a workbook: a "Schedule" grid sheet
// (hour rows, day columns) and an "Appointments" list sheet.
func WriteSchedule(w io.Writer, r schedule.Range, bucketed map[string][]model.Appointment, hours schedule.BusinessHours, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	g := newGridFile()
	if err := g.addSheet("Schedule"); err != nil {
		return err
	}

	header := make([]string, 0, len(r.Days)+1)
	header = append(header, "Time")
	for _, day := range r.Days {
		header = append(header, day.Format("Mon 02 Jan"))
	}
	if err := g.writeHeader(header); err != nil {
		return err
	}

	for _, hour := range hours.Rows() {
		row := make([]interface{}, 0, len(r.Days)+1)
		row = append(row, fmt.Sprintf("%02d:00", hour))
		for _, day := range r.Days {
			cell := ""
			for i, apt := range schedule.SlotsForHour(bucketed, day, hour, loc) {
				if i > 0 {
					cell += "; "
				}
				cell += fmt.Sprintf("%s-%s %s",
					apt.StartTime.In(loc).Format("15:04"),
					apt.EndTime.In(loc).Format("15:04"),
					apt.Status,
				)
			}
			row = append(row, cell)
		}
		if err := g.writeRow(row); err != nil {
			return err
		}
	}

	if err := g.addSheet("Appointments"); err != nil {
		return err
	}
	if err := g.writeHeader([]string{"Start", "End", "Status", "Patient", "Dentist", "Room"}); err != nil {
		return err
	}

	keys := make([]string, 0, len(bucketed))
	for key := range bucketed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, apt := range bucketed[key] {
			err := g.writeRow([]interface{}{
				apt.StartTime.In(loc).Format("2006-01-02 15:04"),
				apt.EndTime.In(loc).Format("2006-01-02 15:04"),
				string(apt.Status),
				apt.PatientID,
				apt.DentistID,
				apt.RoomID,
			})
			if err != nil {
				return err
			}
		}
	}

	return g.file.Write(w)
}
