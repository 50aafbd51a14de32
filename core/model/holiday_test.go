package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestHolidayDecodesBothShapes(t *testing.T) {
	var plain, records []Holiday
	require.NoError(t, json.Unmarshal([]byte(`["2025-12-25","2025-12-26"]`), &plain))
	require.NoError(t, json.Unmarshal([]byte(`[{"date":"2025-12-25","note":"Christmas"},{"date":"2025-12-26"}]`), &records))

	a, err := HolidayDates(plain)
	require.NoError(t, err)
	b, err := HolidayDates(records)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "Christmas", records[0].Note)
}

func TestHolidayYAML(t *testing.T) {
	var hs []Holiday
	src := "- 2025-01-01\n- date: 2025-05-01\n  note: Labour day\n"
	require.NoError(t, yaml.Unmarshal([]byte(src), &hs))
	require.Len(t, hs, 2)
	assert.Equal(t, Holiday{Date: "2025-01-01"}, hs[0])
	assert.Equal(t, Holiday{Date: "2025-05-01", Note: "Labour day"}, hs[1])
}

func TestHolidayDatesRejectsGarbage(t *testing.T) {
	_, err := HolidayDates([]Holiday{{Date: "christmas"}})
	assert.ErrorIs(t, err, ErrInvalidDate)
}
