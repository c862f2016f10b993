package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTime(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)

	cases := []struct {
		name    string
		raw     any
		minutes int
		display string
	}{
		{"nil", nil, 0, ""},
		{"empty string", "", 0, ""},
		{"blank string", "   ", 0, ""},
		{"12-hour morning", "6:45 AM", 405, "6:45 AM"},
		{"12-hour lowercase", "6:45 am", 405, "6:45 AM"},
		{"12-hour no space", "6:45PM", 1125, "6:45 PM"},
		{"noon", "12:00 PM", 720, "12:00 PM"},
		{"after midnight", "12:30 AM", 30, "12:30 AM"},
		{"hour only", "7 PM", 1140, "7:00 PM"},
		{"with seconds", "11:15:30 PM", 1395, "11:15 PM"},
		{"24-hour value with PM", "13:00 PM", 780, "1:00 PM"},
		{"trailing range keeps text", "6:45 AM - 7:45 AM", 405, "6:45 AM - 7:45 AM"},
		{"marker without clock", "noon AM", 0, "noon AM"},
		{"24-hour evening", "18:30", 1110, "6:30 PM"},
		{"24-hour with seconds", "07:05:00", 425, "7:05 AM"},
		{"24-hour midnight hour", "00:15", 15, "12:15 AM"},
		{"24-hour out of range", "25:00", 0, "25:00"},
		{"24-hour range keeps text", "18:30 - 19:30", 1110, "18:30 - 19:30"},
		{"24-hour range without spaces", "18:30-19:30", 1110, "18:30-19:30"},
		{"24-hour three-digit minutes", "12:345", 0, "12:345"},
		{"free text", "morning", 0, "morning"},
		{"serial evening", 0.75, 1080, "6:00 PM"},
		{"serial morning", 0.28125, 405, "6:45 AM"},
		{"serial with date part", 45658.75, 1080, "6:00 PM"},
		{"serial rounding to next day", 0.999999999, 0, "12:00 AM"},
		{"serial zero", 0, 0, "12:00 AM"},
		{"serial float32", float32(0.5), 720, "12:00 PM"},
		{"json number", json.Number("0.5"), 720, "12:00 PM"},
		{"date-like", time.Date(2024, 1, 1, 18, 5, 0, 0, time.UTC), 1085, "6:05 PM"},
		{"date-like keeps wall clock", time.Date(2024, 1, 1, 6, 45, 0, 0, seoul), 405, "6:45 AM"},
		{"zero time", time.Time{}, 0, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeTime(tc.raw)
			assert.Equal(t, tc.minutes, got.Minutes)
			assert.Equal(t, tc.display, got.Display)
		})
	}
}

func TestNormalizeTimeRangeAndStability(t *testing.T) {
	inputs := []any{
		"6:45 AM", "11:59 PM", "12:00 AM", "23:59", "0:00", "9:05",
		0.0, 0.25, 0.5, 0.99, 1.0, 3.75, -0.25,
		time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC),
		"garbage", "13:61", "99 PM",
	}
	for _, in := range inputs {
		first := NormalizeTime(in)
		assert.GreaterOrEqual(t, first.Minutes, 0, "input %v", in)
		assert.LessOrEqual(t, first.Minutes, 1439, "input %v", in)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, NormalizeTime(in), "input %v", in)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "12:00 AM", FormatMinutes(0))
	assert.Equal(t, "6:45 AM", FormatMinutes(405))
	assert.Equal(t, "12:00 PM", FormatMinutes(720))
	assert.Equal(t, "11:59 PM", FormatMinutes(1439))
	assert.Equal(t, "12:00 AM", FormatMinutes(1440))
	assert.Equal(t, "11:00 PM", FormatMinutes(-60))
}

func TestParseClock(t *testing.T) {
	ok := map[string]int{
		"13:00":    780,
		"1 PM":     780,
		"1:30 pm":  810,
		"1440":     1440,
		"0":        0,
		"24:00":    1440,
		"0:00":     0,
		"12 AM":    0,
		"12:00 AM": 0,
	}
	for in, want := range ok {
		got, err := ParseClock(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	for _, in := range []string{"", "abc", "-5", "1441", "25:00", "noon PM", "13:00 - 14:00"} {
		_, err := ParseClock(in)
		assert.Error(t, err, "input %q", in)
	}
}
