package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venuemap/explorer/internal/mapctl"
	"github.com/venuemap/explorer/internal/marker"
	"github.com/venuemap/explorer/pkg/core"
	"github.com/xuri/excelize/v2"
)

func entries() []mapctl.Entry {
	rating := 8.5
	return []mapctl.Entry{
		{
			View: marker.View{MarkerID: "marker-0", Visible: true, HasImagery: true},
			Venue: core.Venue{
				ID: "a", Name: "Taco Stand", Phone: "555-0100", Rating: &rating,
				Address:  core.Address{Street: "1 Main St", City: "Baton Rouge", Region: "LA"},
				Location: core.Coordinate{Lat: 30.4, Lng: -91.1},
			},
		},
		{
			View:  marker.View{MarkerID: "marker-1"},
			Venue: core.Venue{ID: "b", Name: "Pizza Place", Location: core.Coordinate{Lat: 30.5, Lng: -91.2}},
		},
	}
}

func TestRow(t *testing.T) {
	row := Row(entries()[0])
	require.Len(t, row, len(Headers))
	assert.Equal(t, "marker-0", row[0])
	assert.Equal(t, 8.5, row[6])
	assert.Equal(t, true, row[10])

	row = Row(entries()[1])
	assert.Equal(t, "", row[6], "missing rating is blank")
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, entries()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Marker", rows[0][0])
	assert.Equal(t, "Taco Stand", rows[1][1])
	assert.Equal(t, "Baton Rouge", rows[1][3])
	assert.Equal(t, "Pizza Place", rows[2][1])
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
