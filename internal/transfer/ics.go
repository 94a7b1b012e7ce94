package transfer

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/magabrotheeeer/subify/internal/models"
)

const (
	icsProdID      = "-//Subify//Renewal Reminder//EN"
	icsDateLayout  = "20060102"
	icsStampLayout = "20060102T150405Z"
	icsLineLimit   = 75
)

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

func rrule(c models.Cycle) string {
	switch c {
	case models.CycleMonthly:
		return "FREQ=MONTHLY"
	case models.CycleQuarterly:
		return "FREQ=MONTHLY;INTERVAL=3"
	case models.CycleYearly:
		return "FREQ=YEARLY"
	}
	return ""
}

// WriteICS пишет календарь с одним событием продления подписки.
func WriteICS(w io.Writer, sub models.Subscription, now time.Time) error {
	return WriteCalendar(w, []models.Subscription{sub}, now)
}

// WriteCalendar пишет календарь с событием продления для каждой подписки
// с известной датой.
func WriteCalendar(w io.Writer, subs []models.Subscription, now time.Time) error {
	const op = "transfer.WriteCalendar"

	bw := bufio.NewWriter(w)
	line := func(s string) {
		writeFolded(bw, s)
	}

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:" + icsProdID)
	line("CALSCALE:GREGORIAN")
	stamp := now.UTC().Format(icsStampLayout)
	for _, sub := range subs {
		if sub.NextRenewalDate.IsZero() {
			continue
		}
		line("BEGIN:VEVENT")
		line("UID:" + sub.ID + "@subify")
		line("DTSTAMP:" + stamp)
		line("SUMMARY:" + icsEscaper.Replace("Renew "+sub.Name))
		line("DTSTART;VALUE=DATE:" + sub.NextRenewalDate.Format(icsDateLayout))
		if r := rrule(sub.Cycle); r != "" {
			line("RRULE:" + r)
		}
		desc := fmt.Sprintf("Price: %s %s. Reminder from Subify.", sub.Price.String(), sub.Currency)
		line("DESCRIPTION:" + icsEscaper.Replace(desc))
		line("END:VEVENT")
	}
	line("END:VCALENDAR")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// writeFolded пишет строку контента, перенося ее по 75 байт без разрыва
// UTF-8 символов. Продолжение начинается с пробела.
func writeFolded(w *bufio.Writer, s string) {
	limit := icsLineLimit
	for len(s) > limit {
		cut := limit
		for cut > 0 && !isRuneStart(s[cut]) {
			cut--
		}
		w.WriteString(s[:cut])
		w.WriteString("\r\n ")
		s = s[cut:]
		limit = icsLineLimit - 1
	}
	w.WriteString(s)
	w.WriteString("\r\n")
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
