// Package attendance aggregates the per-month, per-day presence maps kept on
// every student record.
//
// Storage shape: presencas[<month name>]["D-M-YYYY"] = present. Month names
// are Portuguese and lower-case; lookups fold diacritics so "março" and
// "marco" address the same month.
package attendance

import (
	"strconv"
	"strings"
	"time"

	"escolinha/internal/identity"
)

// Presencas maps month name to day key to presence.
type Presencas map[string]map[string]bool

var monthNames = [12]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// MonthName returns the stored name for m.
func MonthName(m time.Month) string {
	return monthNames[m-1]
}

// MonthNumber resolves a month name (any case, with or without accents) to
// 1..12.
func MonthNumber(name string) (int, bool) {
	folded := identity.NormalizeText(name)
	for i, n := range monthNames {
		if identity.NormalizeText(n) == folded {
			return i + 1, true
		}
	}
	return 0, false
}

// DayKey formats t as "D-M-YYYY" without zero padding.
func DayKey(t time.Time) string {
	return strconv.Itoa(t.Day()) + "-" + strconv.Itoa(int(t.Month())) + "-" + strconv.Itoa(t.Year())
}

// ParseDayKey splits a "D-M-YYYY" key. Keys that do not name a real
// calendar date are rejected.
func ParseDayKey(key string) (time.Time, bool) {
	parts := strings.Split(strings.TrimSpace(key), "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = n
	}
	day, month, year := nums[0], nums[1], nums[2]
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// Month returns the day map stored for month, matching the name after
// diacritic folding. It never returns nil.
func (p Presencas) Month(month string) map[string]bool {
	if days, ok := p[month]; ok && days != nil {
		return days
	}
	folded := identity.NormalizeText(month)
	for name, days := range p {
		if identity.NormalizeText(name) == folded && days != nil {
			return days
		}
	}
	return map[string]bool{}
}

// Set records presence for the day of t, reusing an existing month key that
// folds to the same name.
func (p Presencas) Set(t time.Time, present bool) {
	month := MonthName(t.Month())
	folded := identity.NormalizeText(month)
	for name := range p {
		if identity.NormalizeText(name) == folded {
			month = name
			break
		}
	}
	if p[month] == nil {
		p[month] = map[string]bool{}
	}
	p[month][DayKey(t)] = present
}

// Counts returns the presences and absences recorded for month.
func (p Presencas) Counts(month string) (present, absent int) {
	for _, v := range p.Month(month) {
		if v {
			present++
		} else {
			absent++
		}
	}
	return present, absent
}

// Merge unions two presence maps day by day; a presence in either side wins.
// Month keys are folded to their canonical name first, so "marco" and
// "março" land in one month. It is commutative and Merge(a, a) equals a for
// canonical keys.
func Merge(a, b Presencas) Presencas {
	out := Presencas{}
	for _, src := range []Presencas{a, b} {
		for name, days := range src {
			month := canonicalMonth(name)
			if out[month] == nil {
				out[month] = map[string]bool{}
			}
			for day, present := range days {
				out[month][day] = out[month][day] || present
			}
		}
	}
	return out
}

func canonicalMonth(name string) string {
	if n, ok := MonthNumber(name); ok {
		return monthNames[n-1]
	}
	return name
}
