package history

import (
	"fmt"
	"time"
)

// FormatOrderDate renders an order timestamp as the relative label shown in
// the history list, evaluated against now (not against fetch time):
//
//	Today, HH:MM
//	Yesterday, HH:MM
//	M-D, HH:MM     (same calendar year)
//	YYYY-M-D       (older)
func FormatOrderDate(t, now time.Time) string {
	t = t.In(now.Location())

	switch {
	case sameDay(t, now):
		return "Today, " + t.Format("15:04")
	case sameDay(t, now.AddDate(0, 0, -1)):
		return "Yesterday, " + t.Format("15:04")
	case t.Year() == now.Year():
		return fmt.Sprintf("%d-%d, %s", int(t.Month()), t.Day(), t.Format("15:04"))
	default:
		return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
