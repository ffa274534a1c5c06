package records

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Placeholders for missing values.
const (
	NotAvailable = "N/A"
	Unavailable  = "No disponible"
)

// FormatNumber prints a grade or credit count without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// OrDefault returns s, or def when s is blank.
func OrDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

var weekdayOrder = map[string]int{
	"lunes": 0, "martes": 1, "miercoles": 2, "miércoles": 2, "jueves": 3,
	"viernes": 4, "sabado": 5, "sábado": 5, "domingo": 6,
}

func weekdayRank(day string) int {
	if r, ok := weekdayOrder[strings.ToLower(strings.TrimSpace(day))]; ok {
		return r
	}
	return len(weekdayOrder)
}

// SortSlots orders slots Monday first, then by start time.
func SortSlots(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		ri, rj := weekdayRank(slots[i].Day), weekdayRank(slots[j].Day)
		if ri != rj {
			return ri < rj
		}
		return slots[i].Start < slots[j].Start
	})
}

// FormatClock turns "7:00:00" or "07:00" into "07:00".
func FormatClock(s string) string {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return strings.TrimSpace(s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return strings.TrimSpace(s)
	}
	return fmt.Sprintf("%02d:%s", h, parts[1])
}

// ScheduleText renders a course schedule, or "Sin horario asignado".
func (c EnrolledCourse) ScheduleText() string {
	if len(c.Schedule) == 0 {
		return "Sin horario asignado"
	}
	parts := make([]string, len(c.Schedule))
	for i, s := range c.Schedule {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}

// EnrolledText lists enrolled courses with group, shift, professor and
// schedule. It is empty when nothing is enrolled.
func (s *StudentRecord) EnrolledText() string {
	lines := make([]string, 0, len(s.Enrolled))
	for _, c := range s.Enrolled {
		lines = append(lines, fmt.Sprintf("- %s (Gpo: %s, Turno: %s, Prof: %s)\n  Horario: %s",
			c.Name, c.Group, c.Shift, c.Professor, c.ScheduleText()))
	}
	return strings.Join(lines, "\n")
}

// ApprovedText lists passed courses, most recent first as loaded.
func (s *StudentRecord) ApprovedText() string {
	lines := make([]string, 0, len(s.Approved))
	for _, c := range s.Approved {
		lines = append(lines, fmt.Sprintf("- %s (Calif: %s, %s)", c.Name, c.Grade, c.Method))
	}
	return strings.Join(lines, "\n")
}

// FailedText lists failed courses still pending.
func (s *StudentRecord) FailedText() string {
	lines := make([]string, 0, len(s.Failed))
	for _, c := range s.Failed {
		lines = append(lines, fmt.Sprintf("- %s (Recursos restantes: %d, Estado: %s)", c.Name, c.PeriodsLeft, c.Status))
	}
	return strings.Join(lines, "\n")
}

// MainShift is the most common shift among enrolled courses. The first
// one seen wins ties.
func (s *StudentRecord) MainShift() string {
	counts := make(map[string]int)
	var order []string
	for _, c := range s.Enrolled {
		if c.Shift == "" {
			continue
		}
		if counts[c.Shift] == 0 {
			order = append(order, c.Shift)
		}
		counts[c.Shift]++
	}
	best := ""
	for _, shift := range order {
		if counts[shift] > counts[best] {
			best = shift
		}
	}
	return best
}

// GroupsText lists the groups a professor teaches.
func (p *ProfessorRecord) GroupsText() string {
	lines := make([]string, 0, len(p.Groups))
	for _, g := range p.Groups {
		lines = append(lines, fmt.Sprintf("- %s (Gpo: %s, Turno: %s, Cupo: %d)", g.Course, g.Name, g.Shift, g.Capacity))
	}
	return strings.Join(lines, "\n")
}

// CommentsText lists the latest reviews.
func (p *ProfessorRecord) CommentsText() string {
	lines := make([]string, 0, len(p.Comments))
	for _, c := range p.Comments {
		lines = append(lines, fmt.Sprintf("- %q (Calif: %s, Fecha: %s)", c.Comment, FormatNumber(c.Rating), OrDefault(c.Date, NotAvailable)))
	}
	return strings.Join(lines, "\n")
}
