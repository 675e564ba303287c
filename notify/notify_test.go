package notify_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logia/treasury-engine/notify"
	"github.com/logia/treasury-engine/treasury"
)

func TestFormatPhone(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		wantP string
	}{
		{"local with leading zero", "0991234567", "593991234567"},
		{"already international", "593991234567", "593991234567"},
		{"bare local", "991234567", "593991234567"},
		{"formatted input", "(099) 123-4567", "593991234567"},
		{"empty", "", ""},
		{"no digits", "abc", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantP, notify.FormatPhone(tc.in))
		})
	}
}

func TestDeepLink(t *testing.T) {
	link := notify.DeepLink("0991234567", "Hola H∴ Juan")

	assert.True(t, strings.HasPrefix(link, "https://wa.me/593991234567?text="))
	assert.NotContains(t, link, " ", "message must be URL encoded")

	assert.Empty(t, notify.DeepLink("", "hola"))
}

func TestBirthdayMessage(t *testing.T) {
	msg := notify.BirthdayMessage("Juan Pérez Andrade")

	assert.Contains(t, msg, "Estimado H∴ Juan,")
	assert.Contains(t, msg, "feliz cumpleaños")
	assert.NotContains(t, msg, "Pérez", "greeting uses the first name only")
}

func TestDebtReminderMessage_ListsAndTruncates(t *testing.T) {
	var pending []treasury.PendingMonth
	months := []string{"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre", "Enero", "Febrero"}
	for i, name := range months {
		year := 2025
		if i >= 6 {
			year = 2026
		}
		pending = append(pending, treasury.PendingMonth{MonthName: name, Year: year})
	}

	msg := notify.DebtReminderMessage("Juan Pérez", "Logia Luz del Pacífico", pending, "400.00")

	assert.Contains(t, msg, "Julio 2025, Agosto 2025")
	assert.Contains(t, msg, "Diciembre 2025 y 2 mes(es) más")
	assert.NotContains(t, msg, "Enero 2026", "only six months are listed by name")
	assert.Contains(t, msg, "$400.00")
	assert.Contains(t, msg, "Tesorería de Logia Luz del Pacífico")
}

func TestDebtReminderMessage_ShortListNoSuffix(t *testing.T) {
	pending := []treasury.PendingMonth{{MonthName: "Julio", Year: 2025}}

	msg := notify.DebtReminderMessage("Juan Pérez", "Logia", pending, "50.00")

	assert.Contains(t, msg, "Julio 2025")
	assert.NotContains(t, msg, "mes(es) más")
}

func TestBirthdaysOn(t *testing.T) {
	members := []treasury.Member{
		{ID: "m1", FullName: "Juan Pérez", BirthDate: "1980-09-01"},
		{ID: "m2", FullName: "Pedro Gómez", BirthDate: "1975-03-15"},
		{ID: "m3", FullName: "Luis Ortiz", BirthDate: ""},
	}
	on := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)

	got := notify.BirthdaysOn(members, on)

	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)
}
