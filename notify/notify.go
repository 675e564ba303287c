/*
notify.go - WhatsApp deep links and reminder messages

Only the official wa.me deep link is used; the server never talks to any
WhatsApp API. This package builds the link and the pre-filled Spanish
message text; the client decides when to open it.
*/
package notify

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/logia/treasury-engine/fiscal"
	"github.com/logia/treasury-engine/treasury"
)

// countryCode prefixes local Ecuadorian numbers.
const countryCode = "593"

// maxListedMonths caps the months enumerated in a reminder; the rest are
// summarized as a count.
const maxListedMonths = 6

// FormatPhone normalizes a phone number for wa.me: digits only, leading
// zero replaced by the country code, bare local numbers prefixed with it.
// Returns "" when no digits remain.
func FormatPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	switch {
	case clean == "":
		return ""
	case strings.HasPrefix(clean, "0"):
		return countryCode + clean[1:]
	case !strings.HasPrefix(clean, countryCode):
		return countryCode + clean
	}
	return clean
}

// DeepLink builds the wa.me URL with the message pre-filled. Returns ""
// when the phone number has no digits.
func DeepLink(phone, message string) string {
	clean := FormatPhone(phone)
	if clean == "" {
		return ""
	}
	return fmt.Sprintf("https://wa.me/%s?text=%s", clean, url.QueryEscape(message))
}

// FirstName extracts the leading word of a full name.
func FirstName(fullName string) string {
	name := strings.TrimSpace(fullName)
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i]
	}
	return name
}

// BirthdayMessage builds the fraternal birthday greeting.
func BirthdayMessage(fullName string) string {
	return fmt.Sprintf(
		"Estimado H∴ %s,\n\n"+
			"Reciba un fraternal saludo en este día especial.\n"+
			"La Logia le desea un feliz cumpleaños, lleno de salud, sabiduría y prosperidad.\n\n"+
			"Con estima y fraternidad.",
		FirstName(fullName))
}

// DebtReminderMessage builds the dues reminder. At most six months are
// listed by name; any further months collapse into a count.
func DebtReminderMessage(fullName, institutionName string, pending []treasury.PendingMonth, totalOwed string) string {
	listed := pending
	if len(listed) > maxListedMonths {
		listed = listed[:maxListedMonths]
	}
	parts := make([]string, 0, len(listed))
	for _, pm := range listed {
		parts = append(parts, fmt.Sprintf("%s %d", pm.MonthName, pm.Year))
	}
	months := strings.Join(parts, ", ")
	if extra := len(pending) - maxListedMonths; extra > 0 {
		months += fmt.Sprintf(" y %d mes(es) más", extra)
	}

	return fmt.Sprintf(
		"Estimado H∴ %s,\n\n"+
			"Reciba un fraternal saludo de parte de %s.\n\n"+
			"Por medio de la presente, le comunicamos que según nuestros registros, "+
			"usted tiene pendiente el pago de las siguientes cuotas mensuales:\n\n"+
			"📅 Meses pendientes: %s\n"+
			"💰 Total acumulado: $%s\n\n"+
			"Le solicitamos de la manera más atenta regularizar su situación a la brevedad posible.\n\n"+
			"Quedamos a su disposición para cualquier consulta.\n\n"+
			"Fraternalmente,\n"+
			"Tesorería de %s",
		FirstName(fullName), institutionName, months, totalOwed, institutionName)
}

// BirthdaysOn returns the members whose birthday falls on the given day.
func BirthdaysOn(members []treasury.Member, on time.Time) []treasury.Member {
	var out []treasury.Member
	for _, m := range members {
		if fiscal.IsBirthday(m.BirthDate, on) {
			out = append(out, m)
		}
	}
	return out
}
