// Package export writes the current marker list as a spreadsheet.
package export

import (
	"fmt"
	"io"

	"github.com/venuemap/explorer/internal/mapctl"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet the markers are written to.
const SheetName = "Markers"

// Headers is the first row of the sheet.
var Headers = []interface{}{
	"Marker", "Name", "Street", "City", "Region", "Phone",
	"Rating", "Website", "Lat", "Lng", "Visible", "Imagery",
}

// Row converts one entry to a sheet row.
func Row(e mapctl.Entry) []interface{} {
	v := e.Venue
	var rating interface{} = ""
	if v.Rating != nil {
		rating = *v.Rating
	}
	return []interface{}{
		e.View.MarkerID, v.Name, v.Address.Street, v.Address.City, v.Address.Region, v.Phone,
		rating, v.Website, v.Location.Lat, v.Location.Lng, e.View.Visible, e.View.HasImagery,
	}
}

// Write encodes entries as an xlsx workbook into w.
func Write(w io.Writer, entries []mapctl.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("creating stream writer: %w", err)
	}
	if err := sw.SetRow("A1", Headers); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, Row(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flushing rows: %w", err)
	}

	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}
	return f.Write(w)
}
