package records

import (
	"fmt"
	"strings"
)

// Dates shown in the generation prompt, per role.
var (
	studentPromptDates   = []string{SemesterStart, SemesterEnd, FirstPartial}
	professorPromptDates = []string{ProfessorEvaluation, FirstPartial, FirstPartialEnd}
)

// Render describes the user for the generation prompt. A nil or unusable
// record yields a short notice instead.
func Render(userType UserType, rec *Record) string {
	if userType == Professor {
		if !rec.Usable() || rec.Professor == nil {
			return "No se pudo obtener información académica del profesor."
		}
		return RenderProfessor(rec.Professor)
	}
	if !rec.Usable() || rec.Student == nil {
		return "No se pudo obtener información académica del alumno."
	}
	return RenderStudent(rec.Student)
}

// RenderStudent formats a student record for the prompt.
func RenderStudent(s *StudentRecord) string {
	average := NotAvailable
	if s.Average != nil {
		average = fmt.Sprintf("%.2f", *s.Average)
	}
	semester := NotAvailable
	if n, ok := s.CurrentSemester(); ok {
		semester = fmt.Sprint(n)
	}
	active := "No"
	if s.ReenrollmentActive {
		active = "Sí"
	}

	lines := []string{
		"Boleta: " + OrDefault(s.Boleta, NotAvailable),
		"Nombre: " + OrDefault(s.Name, NotAvailable),
		"Carrera: " + OrDefault(s.Career, NotAvailable),
		"Promedio general: " + average,
		"Créditos disponibles: " + FormatNumber(s.AvailableCredits),
		"Estado académico: " + OrDefault(s.AcademicStatus, NotAvailable),
		"Situación en Kardex: " + OrDefault(s.KardexStatus, NotAvailable),
		"Semestre Actual: " + semester,
		fmt.Sprintf("Reinscripción Activa: %s (Caduca: %s)", active, OrDefault(s.ReenrollmentEnds, NotAvailable)),
		section("Materias Inscritas", OrDefault(s.EnrolledText(), "Sin materias inscritas actualmente")),
		section("Historial Académico (Aprobadas)", OrDefault(s.ApprovedText(), "Sin materias aprobadas registradas")),
		section("Historial Académico (Reprobadas)", OrDefault(s.FailedText(), "Sin materias reprobadas registradas")),
		section("Fechas Relevantes", datesText(s.Dates, studentPromptDates)),
	}
	return strings.Join(lines, "\n")
}

// RenderProfessor formats a professor record for the prompt.
func RenderProfessor(p *ProfessorRecord) string {
	lines := []string{
		"ID Profesor: " + OrDefault(p.ID, NotAvailable),
		"Nombre: " + OrDefault(p.Name, NotAvailable),
		"Grado: " + OrDefault(p.Degree, NotAvailable),
		fmt.Sprintf("Calificación promedio: %.1f (%d reseñas)", p.Rating, p.Reviews),
		section("Grupos Impartidos", OrDefault(p.GroupsText(), "Sin grupos asignados para este semestre.")),
		section("Últimos Comentarios", OrDefault(p.CommentsText(), "Sin comentarios recientes.")),
		section("Fechas Relevantes", datesText(p.Dates, professorPromptDates)),
	}
	return strings.Join(lines, "\n")
}

func section(title, body string) string {
	return "\n--- " + title + " ---\n" + body
}

// datesText lists the given keys that are present, in key order.
func datesText(d Dates, keys []string) string {
	var lines []string
	for _, k := range keys {
		if v, ok := d[k]; ok {
			lines = append(lines, fmt.Sprintf("- %s: %s", k, OrDefault(v, NotAvailable)))
		}
	}
	return strings.Join(lines, "\n")
}
