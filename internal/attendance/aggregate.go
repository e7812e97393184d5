package attendance

import (
	"math"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// RiskThreshold is the absence streak that flags a student.
const RiskThreshold = 3

// Student is the slice of a roster entry the aggregator reads.
type Student struct {
	Nome      string
	Presencas Presencas
}

// DayTotal is the number of students present on one day.
type DayTotal struct {
	Dia       int `json:"dia"`
	Presentes int `json:"presentes"`
}

// Streak is the trailing run of absences in a month.
type Streak struct {
	Nome   string   `json:"nome"`
	Faltas int      `json:"faltasSeguidas"`
	Datas  []string `json:"datas"`
}

// MonthlyAbsences sums the absences of every student in month.
func MonthlyAbsences(students []Student, month string) int {
	total := 0
	for _, s := range students {
		_, absent := s.Presencas.Counts(month)
		total += absent
	}
	return total
}

// Frequency is the presence percentage for month, rounded to one decimal.
// No records yields 0.
func Frequency(p Presencas, month string) float64 {
	present, absent := p.Counts(month)
	if present+absent == 0 {
		return 0
	}
	pct := float64(present) / float64(present+absent) * 100
	return math.Round(pct*10) / 10
}

// DailyPresence counts present students per day of month. Only the month
// number of each key must match; the year is ignored. Days with no one
// present are omitted.
func DailyPresence(students []Student, month string) []DayTotal {
	target, ok := MonthNumber(month)
	if !ok {
		return []DayTotal{}
	}
	counts := map[int]int{}
	for _, s := range students {
		for key, present := range s.Presencas.Month(month) {
			t, ok := ParseDayKey(key)
			if !ok || int(t.Month()) != target || !present {
				continue
			}
			counts[t.Day()]++
		}
	}
	out := make([]DayTotal, 0, len(counts))
	for day, n := range counts {
		out = append(out, DayTotal{Dia: day, Presentes: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dia < out[j].Dia })
	return out
}

// ConsecutiveAbsences walks month chronologically and returns the final
// absence streak with up to the last RiskThreshold absence dates. A presence
// resets the streak. When today is non-zero, days after it are ignored.
func ConsecutiveAbsences(p Presencas, month string, today time.Time) Streak {
	days := sortedDays(p.Month(month))
	var cutoff time.Time
	if !today.IsZero() {
		cutoff = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	}

	var recent recentDates
	streak := 0
	for _, d := range days {
		if !cutoff.IsZero() && d.date.After(cutoff) {
			break
		}
		if d.present {
			streak = 0
			recent.reset()
			continue
		}
		streak++
		recent.push(d.key)
	}
	return Streak{Faltas: streak, Datas: recent.list()}
}

// AtRisk lists the students whose final streak in month reaches
// RiskThreshold, longest streak first, then by name.
func AtRisk(students []Student, month string, today time.Time) []Streak {
	out := []Streak{}
	for _, s := range students {
		st := ConsecutiveAbsences(s.Presencas, month, today)
		if st.Faltas < RiskThreshold {
			continue
		}
		st.Nome = s.Nome
		out = append(out, st)
	}
	col := collate.New(language.BrazilianPortuguese)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Faltas != out[j].Faltas {
			return out[i].Faltas > out[j].Faltas
		}
		return col.CompareString(out[i].Nome, out[j].Nome) < 0
	})
	return out
}

type day struct {
	key     string
	date    time.Time
	present bool
}

func sortedDays(days map[string]bool) []day {
	out := make([]day, 0, len(days))
	for key, present := range days {
		t, ok := ParseDayKey(key)
		if !ok {
			continue
		}
		out = append(out, day{key: key, date: t, present: present})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].date.Equal(out[j].date) {
			return out[i].key < out[j].key
		}
		return out[i].date.Before(out[j].date)
	})
	return out
}

// recentDates keeps the last RiskThreshold absence dates.
type recentDates struct {
	buf   [RiskThreshold]string
	head  int
	count int
}

func (r *recentDates) push(key string) {
	r.buf[r.head] = key
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

func (r *recentDates) reset() {
	r.head, r.count = 0, 0
}

// list returns the retained dates oldest first.
func (r *recentDates) list() []string {
	out := make([]string, 0, r.count)
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}
