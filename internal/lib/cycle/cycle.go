// Package cycle содержит чистые функции календарной арифметики периодов
// списания: сдвиг даты продления вперед и назад и правило попадания
// списания в месяц относительно даты-якоря.
package cycle

import (
	"time"

	"github.com/magabrotheeeer/subify/internal/models"
)

// Months возвращает длину периода в месяцах, 0 для неизвестного периода.
func Months(c models.Cycle) int {
	switch c {
	case models.CycleMonthly:
		return 1
	case models.CycleQuarterly:
		return 3
	case models.CycleYearly:
		return 12
	}
	return 0
}

// Advance сдвигает дату на один период вперед. Переполнение дня месяца
// нормализуется как в time.AddDate: 31 января + 1 месяц = 2 марта.
// Неизвестный период оставляет дату без изменений.
func Advance(d models.Date, c models.Cycle) models.Date {
	if c == models.CycleYearly {
		return d.AddDate(1, 0, 0)
	}
	n := Months(c)
	if n == 0 {
		return d
	}
	return d.AddDate(0, n, 0)
}

// Revert сдвигает дату на один период назад с той же нормализацией.
func Revert(d models.Date, c models.Cycle) models.Date {
	if c == models.CycleYearly {
		return d.AddDate(-1, 0, 0)
	}
	n := Months(c)
	if n == 0 {
		return d
	}
	return d.AddDate(0, -n, 0)
}

// NextFutureRenewal применяет Advance хотя бы один раз и повторяет,
// пока дата не станет строго позже today.
func NextFutureRenewal(d models.Date, c models.Cycle, today models.Date) models.Date {
	if Months(c) == 0 {
		return d
	}
	next := Advance(d, c)
	for !next.After(today) {
		next = Advance(next, c)
	}
	return next
}

// MonthsBetween количество календарных месяцев от месяца from до month/year.
// День месяца не учитывается, результат может быть отрицательным.
func MonthsBetween(from models.Date, month time.Month, year int) int {
	return (year-from.Year())*12 + int(month) - int(from.Month())
}

// ChargesIn сообщает, приходится ли списание подписки с якорем anchor
// на календарный месяц month/year. Списание происходит в месяце якоря
// и далее через каждый период, но не раньше якоря.
func ChargesIn(anchor models.Date, c models.Cycle, month time.Month, year int) bool {
	step := Months(c)
	if step == 0 || anchor.IsZero() {
		return false
	}
	diff := MonthsBetween(anchor, month, year)
	return diff >= 0 && diff%step == 0
}

// ChargesInYear количество списаний подписки за календарный год.
func ChargesInYear(anchor models.Date, c models.Cycle, year int) int {
	count := 0
	for m := time.January; m <= time.December; m++ {
		if ChargesIn(anchor, c, m, year) {
			count++
		}
	}
	return count
}
