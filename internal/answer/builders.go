package answer

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/saesagent/internal/records"
)

// recordBuilders covers every non-glossary subtype the classifier returns.
var recordBuilders = map[string]Builder{
	"horario":               student(schedule),
	"materias_inscritas":    student(enrolledCourses),
	"promedio":              student(average),
	"creditos":              student(credits),
	"estado":                student(academicStatus),
	"materias_aprobadas":    student(approvedCourses),
	"carrera":               student(career),
	"semestre":              student(semester),
	"datos_personales":      student(personalData),
	"inscripcion_info":      student(reenrollment),
	"creditos_detalle":      student(creditDetail),
	"programa_info":         student(programInfo),
	"conteo_materias":       student(courseCount),
	"kardex_info":           student(kardex),
	"turno_info":            student(shift),
	"profesores_info":       student(professors),
	"fechas_semestre":       dates(semesterDates),
	"fechas_parciales":      dates(partialDates),
	"fechas_ets":            dates(etsDates),
	"profesor_grupos":       professor(professorGroups),
	"profesor_calificacion": professor(professorRating),
	"profesor_resenas":      professor(professorReviews),
	"profesor_fechas":       dates(professorDates),
}

// student adapts a student builder. Records of another kind render as an
// empty student, so the answer reports the data as missing.
func student(fn func(*records.StudentRecord) string) Builder {
	return func(rec *records.Record) string {
		if rec == nil || rec.Student == nil {
			return fn(&records.StudentRecord{})
		}
		return fn(rec.Student)
	}
}

func professor(fn func(*records.ProfessorRecord) string) Builder {
	return func(rec *records.Record) string {
		if rec == nil || rec.Professor == nil {
			return fn(&records.ProfessorRecord{})
		}
		return fn(rec.Professor)
	}
}

// dates adapts a calendar builder; both record kinds carry the calendar.
func dates(fn func(records.Dates) string) Builder {
	return func(rec *records.Record) string {
		switch {
		case rec == nil:
			return fn(nil)
		case rec.Student != nil:
			return fn(rec.Student.Dates)
		case rec.Professor != nil:
			return fn(rec.Professor.Dates)
		default:
			return fn(nil)
		}
	}
}

func lines(head string, items ...string) string {
	return head + "\n" + strings.Join(items, "\n")
}

func schedule(s *records.StudentRecord) string {
	text := s.EnrolledText()
	if text == "" {
		return "No cuentas con materias inscritas este período."
	}
	return "Tu horario de clases es el siguiente:\n" + text
}

func enrolledCourses(s *records.StudentRecord) string {
	if len(s.Enrolled) == 0 {
		return "No tienes materias inscritas actualmente."
	}
	return fmt.Sprintf("Estás inscrito en %d materias:\n%s", len(s.Enrolled), s.EnrolledText())
}

func average(s *records.StudentRecord) string {
	if s.Average == nil {
		return "No se tiene registrado un promedio en tu expediente."
	}
	return "Tu promedio general actual es: " + records.FormatNumber(*s.Average)
}

func credits(s *records.StudentRecord) string {
	return "Créditos disponibles: " + records.FormatNumber(s.AvailableCredits)
}

func academicStatus(s *records.StudentRecord) string {
	out := "Tu estado académico es: " + records.OrDefault(s.AcademicStatus, records.Unavailable)
	if s.KardexStatus != "" {
		out += "\nSituación en kardex: " + s.KardexStatus
	}
	return out
}

func approvedCourses(s *records.StudentRecord) string {
	if len(s.Approved) == 0 {
		return "No tienes materias aprobadas registradas."
	}
	return fmt.Sprintf("Has aprobado %d materias:\n%s", len(s.Approved), s.ApprovedText())
}

func career(s *records.StudentRecord) string {
	return "Tu carrera es: " + records.OrDefault(s.Career, records.Unavailable)
}

func semester(s *records.StudentRecord) string {
	n, ok := s.CurrentSemester()
	if !ok {
		return "No hay registro de tu semestre actual."
	}
	return fmt.Sprintf("Actualmente cursas el semestre %d.", n)
}

func personalData(s *records.StudentRecord) string {
	na := records.Unavailable
	return lines("Datos personales registrados:",
		"- Boleta: "+records.OrDefault(s.Boleta, na),
		"- Nombre: "+records.OrDefault(s.Name, na),
		"- Correo: "+records.OrDefault(s.Email, na),
		"- Teléfono: "+records.OrDefault(s.Phone, na),
		"- Dirección: "+records.OrDefault(s.Address, na),
	)
}

func reenrollment(s *records.StudentRecord) string {
	ends := records.OrDefault(s.ReenrollmentEnds, records.Unavailable)
	if s.ReenrollmentActive {
		return "La reinscripción está activa. Fecha límite: " + ends
	}
	return "La reinscripción no está activa. Última fecha registrada: " + ends
}

func creditDetail(s *records.StudentRecord) string {
	return lines("Información de créditos:",
		"- Disponibles: "+records.FormatNumber(s.AvailableCredits))
}

func programInfo(s *records.StudentRecord) string {
	remaining := records.NotAvailable
	if s.RemainingSemesters != nil {
		remaining = fmt.Sprint(*s.RemainingSemesters)
	}
	return lines("Información académica del programa:",
		"- Carrera: "+records.OrDefault(s.Career, records.Unavailable),
		"- Semestres restantes: "+remaining)
}

func courseCount(s *records.StudentRecord) string {
	return lines("Resumen de materias:",
		fmt.Sprintf("- Cursando actualmente: %d", len(s.Enrolled)),
		fmt.Sprintf("- Aprobadas: %d", len(s.Approved)))
}

func kardex(s *records.StudentRecord) string {
	avg := records.Unavailable
	if s.Average != nil {
		avg = records.FormatNumber(*s.Average)
	}
	return lines("Información del kardex:",
		"- Situación: "+records.OrDefault(s.KardexStatus, records.Unavailable),
		"- Promedio general: "+avg,
		fmt.Sprintf("- Materias aprobadas: %d", len(s.Approved)))
}

func shift(s *records.StudentRecord) string {
	if main := s.MainShift(); main != "" {
		return fmt.Sprintf("Tu turno es: %s.", main)
	}
	return "La información de turno no está disponible actualmente."
}

func professors(s *records.StudentRecord) string {
	text := s.EnrolledText()
	if text == "" {
		return "No tienes profesores registrados actualmente."
	}
	return "Información de profesores incluida en tu horario:\n" + text
}

func semesterDates(d records.Dates) string {
	return lines("Fechas del semestre:",
		"- Inicio: "+d.Get(records.SemesterStart),
		"- Fin: "+d.Get(records.SemesterEnd),
		"- Período: "+d.Get(records.Period))
}

func partialDates(d records.Dates) string {
	return lines("Fechas de parciales:",
		"- Primer parcial: "+d.Get(records.FirstPartial)+" - "+d.Get(records.FirstPartialEnd),
		"- Segundo parcial: "+d.Get(records.SecondPartial)+" - "+d.Get(records.SecondPartialEnd),
		"- Tercer parcial: "+d.Get(records.ThirdPartial)+" - "+d.Get(records.ThirdPartialEnd))
}

func etsDates(d records.Dates) string {
	return lines("Fechas relacionadas con ETS:",
		"- Evaluación de profesores: "+d.Get(records.ProfessorEvaluation),
		"- Subida de documentos: "+d.Get(records.ETSDocuments)+" - "+d.Get(records.ETSDocumentsEnd),
		"- Evaluación ETS: "+d.Get(records.ETSEvaluation)+" - "+d.Get(records.ETSEvaluationEnd),
		"- Calificación ETS: "+d.Get(records.ETSGrades))
}

func professorGroups(p *records.ProfessorRecord) string {
	text := p.GroupsText()
	if text == "" {
		return "No tienes grupos asignados para este semestre."
	}
	return "Grupos asignados:\n" + text
}

func professorRating(p *records.ProfessorRecord) string {
	return fmt.Sprintf("Tu calificación promedio es %.1f, con un total de %d reseñas registradas.", p.Rating, p.Reviews)
}

func professorReviews(p *records.ProfessorRecord) string {
	text := p.CommentsText()
	if text == "" {
		return "No se han registrado comentarios recientes."
	}
	return "Últimos comentarios recibidos:\n" + text
}

func professorDates(d records.Dates) string {
	return lines("Fechas relevantes del semestre:",
		"- Inicio: "+d.Get(records.SemesterStart),
		"- Fin: "+d.Get(records.SemesterEnd),
		"- Evaluación docente: "+d.Get(records.ProfessorEvaluation),
		"- Registro de calificaciones (1er parcial): "+d.Get(records.FirstPartial)+" - "+d.Get(records.FirstPartialEnd))
}
