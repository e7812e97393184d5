package attendance

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// StudentSummary is one student's line in a month report.
type StudentSummary struct {
	Nome       string  `json:"nome"`
	Presencas  int     `json:"presencas"`
	Faltas     int     `json:"faltas"`
	Frequencia float64 `json:"frequencia"`
}

// Report is the month view of one class.
type Report struct {
	Mes         string           `json:"mes"`
	Alunos      []StudentSummary `json:"alunos"`
	TotalFaltas int              `json:"totalFaltas"`
	PorDia      []DayTotal       `json:"porDia"`
	EmRisco     []Streak         `json:"emRisco"`
}

// BuildReport aggregates students for month. today bounds the at-risk
// detection; the zero time disables the bound.
func BuildReport(students []Student, month string, today time.Time) Report {
	r := Report{
		Mes:         month,
		Alunos:      make([]StudentSummary, 0, len(students)),
		TotalFaltas: MonthlyAbsences(students, month),
		PorDia:      DailyPresence(students, month),
		EmRisco:     AtRisk(students, month, today),
	}
	for _, s := range students {
		present, absent := s.Presencas.Counts(month)
		r.Alunos = append(r.Alunos, StudentSummary{
			Nome:       s.Nome,
			Presencas:  present,
			Faltas:     absent,
			Frequencia: Frequency(s.Presencas, month),
		})
	}
	return r
}

// WriteCSV renders the month as a semicolon separated sheet: one header row,
// one row per student, one column per recorded day ("P" or "F").
func WriteCSV(w io.Writer, students []Student, month string) error {
	keys := map[string]time.Time{}
	for _, s := range students {
		for key := range s.Presencas.Month(month) {
			if t, ok := ParseDayKey(key); ok {
				keys[key] = t
			}
		}
	}
	days := make([]string, 0, len(keys))
	for k := range keys {
		days = append(days, k)
	}
	sort.Slice(days, func(i, j int) bool {
		if keys[days[i]].Equal(keys[days[j]]) {
			return days[i] < days[j]
		}
		return keys[days[i]].Before(keys[days[j]])
	})

	cw := csv.NewWriter(w)
	cw.Comma = ';'
	header := append([]string{"Aluno", "Presenças", "Faltas", "Frequência (%)"}, days...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range students {
		recorded := s.Presencas.Month(month)
		present, absent := s.Presencas.Counts(month)
		row := []string{
			s.Nome,
			strconv.Itoa(present),
			strconv.Itoa(absent),
			decimalComma(Frequency(s.Presencas, month)),
		}
		for _, d := range days {
			v, ok := recorded[d]
			switch {
			case !ok:
				row = append(row, "")
			case v:
				row = append(row, "P")
			default:
				row = append(row, "F")
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// decimalComma formats with one decimal and a comma separator, which is what
// pt-BR spreadsheets expect next to a semicolon delimiter.
func decimalComma(f float64) string {
	return strings.Replace(strconv.FormatFloat(f, 'f', 1, 64), ".", ",", 1)
}
