package fiscal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logia/treasury-engine/fiscal"
)

func TestYearInfo_FiscalWindow(t *testing.T) {
	tests := []struct {
		name string
		ref  time.Time
		want int
	}{
		{"july starts the fiscal year", time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), 2025},
		{"december stays in same fiscal year", time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC), 2025},
		{"january belongs to previous fiscal year", time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), 2025},
		{"june closes previous fiscal year", time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC), 2025},
		{"new fiscal year opens next july", time.Date(2026, time.July, 15, 0, 0, 0, 0, time.UTC), 2026},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := fiscal.YearInfo(tt.ref)
			assert.Equal(t, tt.want, info.FiscalYear)
			assert.Equal(t, info.FiscalYear, info.CurrentCalendarYear)
			assert.Equal(t, info.FiscalYear+1, info.NextCalendarYear)
		})
	}
}

func TestMonths_OrderAndBounds(t *testing.T) {
	months := fiscal.Months(2025)
	require.Len(t, months, 12)

	assert.Equal(t, fiscal.MonthYear{Month: 7, Year: 2025}, months[0])
	assert.Equal(t, fiscal.MonthYear{Month: 12, Year: 2025}, months[5])
	assert.Equal(t, fiscal.MonthYear{Month: 1, Year: 2026}, months[6])
	assert.Equal(t, fiscal.MonthYear{Month: 6, Year: 2026}, months[11])

	seen := make(map[fiscal.MonthYear]bool)
	for _, my := range months {
		assert.False(t, seen[my], "duplicate month %v", my)
		seen[my] = true
	}
}

func TestContains(t *testing.T) {
	assert.True(t, fiscal.Contains(2025, 7, 2025))
	assert.True(t, fiscal.Contains(2025, 12, 2025))
	assert.True(t, fiscal.Contains(2025, 1, 2026))
	assert.True(t, fiscal.Contains(2025, 6, 2026))

	assert.False(t, fiscal.Contains(2025, 6, 2025), "june 2025 belongs to fiscal 2024")
	assert.False(t, fiscal.Contains(2025, 7, 2026), "july 2026 belongs to fiscal 2026")
	assert.False(t, fiscal.Contains(2025, 0, 2025))
	assert.False(t, fiscal.Contains(2025, 13, 2025))
}

func TestLabelAndNames(t *testing.T) {
	assert.Equal(t, "2025-2026", fiscal.Label(2025))
	assert.Equal(t, "Julio", fiscal.MonthName(7))
	assert.Equal(t, "Enero", fiscal.MonthName(1))
	assert.Equal(t, "", fiscal.MonthName(0))
	assert.Equal(t, "Julio 2025", fiscal.MonthYear{Month: 7, Year: 2025}.String())
	assert.Equal(t, "7-2025", fiscal.MonthYear{Month: 7, Year: 2025}.Key())
}

func TestIsBirthday(t *testing.T) {
	on := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, fiscal.IsBirthday("1980-09-01", on))
	assert.False(t, fiscal.IsBirthday("1980-09-02", on))
	assert.False(t, fiscal.IsBirthday("1980-10-01", on))
	assert.False(t, fiscal.IsBirthday("", on))
	assert.False(t, fiscal.IsBirthday("not-a-date", on))
}
