// Package records models the per-user academic data that backs direct
// answers and the generation prompt, and the providers that load it.
package records

import (
	"fmt"
	"strings"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
)

// UserType selects which record a user id refers to.
type UserType string

const (
	Student   UserType = "alumno"
	Professor UserType = "profesor"
)

// ParseUserType accepts "alumno" or "profesor" in any case.
func ParseUserType(s string) (UserType, error) {
	switch t := UserType(strings.ToLower(strings.TrimSpace(s))); t {
	case Student, Professor:
		return t, nil
	default:
		return "", saeserrors.New(saeserrors.ErrCodeUnknownUserType,
			fmt.Sprintf("unknown user type %q", s), nil).
			WithSuggestion("use alumno or profesor")
	}
}

// Slot is one weekly class meeting.
type Slot struct {
	Day   string `yaml:"day" json:"day"`
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// String renders the slot as "Lunes de 07:00 a 08:30".
func (s Slot) String() string {
	if s.Start == "" || s.End == "" {
		return strings.TrimSpace(s.Day + " " + s.Start + s.End)
	}
	return fmt.Sprintf("%s de %s a %s", s.Day, s.Start, s.End)
}

// EnrolledCourse is a course the student is taking this period.
type EnrolledCourse struct {
	Name      string  `yaml:"name" json:"name"`
	Group     string  `yaml:"group" json:"group"`
	Shift     string  `yaml:"shift" json:"shift"`
	Professor string  `yaml:"professor" json:"professor"`
	Credits   float64 `yaml:"credits" json:"credits"`
	Semester  int     `yaml:"semester" json:"semester"`
	Schedule  []Slot  `yaml:"schedule" json:"schedule"`
}

// ApprovedCourse is a passed course from the kardex.
type ApprovedCourse struct {
	Name     string `yaml:"name" json:"name"`
	Grade    string `yaml:"grade" json:"grade"`
	Semester int    `yaml:"semester" json:"semester"`
	Method   string `yaml:"method" json:"method"`
	Period   string `yaml:"period" json:"period"`
	Date     string `yaml:"date" json:"date"`
}

// FailedCourse is a course the student still has to recover.
type FailedCourse struct {
	Name        string `yaml:"name" json:"name"`
	PeriodsLeft int    `yaml:"periods_left" json:"periods_left"`
	Status      string `yaml:"status" json:"status"`
}

// Dates holds the latest row of relevant calendar dates, keyed by column.
type Dates map[string]string

// Calendar keys used by answers and prompts.
const (
	SemesterStart       = "inicio_semestre"
	SemesterEnd         = "fin_semestre"
	Period              = "periodo"
	FirstPartial        = "registro_primer_parcial"
	FirstPartialEnd     = "fin_registro_primer_parcial"
	SecondPartial       = "registro_segundo_parcial"
	SecondPartialEnd    = "fin_registro_segundo_parcial"
	ThirdPartial        = "registro_tercer_parcial"
	ThirdPartialEnd     = "fin_registro_tercer_parcial"
	ProfessorEvaluation = "evalu_profe"
	ETSDocuments        = "subir_doc_ets"
	ETSDocumentsEnd     = "fin_subir_doc_ets"
	ETSEvaluation       = "eval_ets"
	ETSEvaluationEnd    = "fin_evalu_ets"
	ETSGrades           = "cal_ets"
)

// Get returns the date for key, or "N/A".
func (d Dates) Get(key string) string {
	if v, ok := d[key]; ok && v != "" {
		return v
	}
	return NotAvailable
}

// StudentRecord is everything known about a student.
type StudentRecord struct {
	Boleta             string           `yaml:"boleta" json:"boleta"`
	Name               string           `yaml:"name" json:"name"`
	Email              string           `yaml:"email" json:"email"`
	Phone              string           `yaml:"phone" json:"phone"`
	Address            string           `yaml:"address" json:"address"`
	Career             string           `yaml:"career" json:"career"`
	Average            *float64         `yaml:"average" json:"average,omitempty"`
	AvailableCredits   float64          `yaml:"available_credits" json:"available_credits"`
	AcademicStatus     string           `yaml:"academic_status" json:"academic_status"`
	KardexStatus       string           `yaml:"kardex_status" json:"kardex_status"`
	RemainingSemesters *int             `yaml:"remaining_semesters" json:"remaining_semesters,omitempty"`
	Approved           []ApprovedCourse `yaml:"approved" json:"approved"`
	Failed             []FailedCourse   `yaml:"failed" json:"failed"`
	Enrolled           []EnrolledCourse `yaml:"enrolled" json:"enrolled"`
	ReenrollmentActive bool             `yaml:"reenrollment_active" json:"reenrollment_active"`
	ReenrollmentEnds   string           `yaml:"reenrollment_ends" json:"reenrollment_ends"`
	Dates              Dates            `yaml:"dates" json:"dates"`
}

// CurrentSemester is the highest semester among enrolled courses.
func (s *StudentRecord) CurrentSemester() (int, bool) {
	best := 0
	for _, c := range s.Enrolled {
		if c.Semester > best {
			best = c.Semester
		}
	}
	return best, len(s.Enrolled) > 0
}

// Group is a class group taught by a professor.
type Group struct {
	Course   string `yaml:"course" json:"course"`
	Name     string `yaml:"name" json:"name"`
	Shift    string `yaml:"shift" json:"shift"`
	Capacity int    `yaml:"capacity" json:"capacity"`
}

// Review is a student comment about a professor.
type Review struct {
	Comment string  `yaml:"comment" json:"comment"`
	Rating  float64 `yaml:"rating" json:"rating"`
	Date    string  `yaml:"date" json:"date"`
}

// ProfessorRecord is everything known about a professor.
type ProfessorRecord struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Email    string   `yaml:"email" json:"email"`
	Phone    string   `yaml:"phone" json:"phone"`
	Degree   string   `yaml:"degree" json:"degree"`
	Rating   float64  `yaml:"rating" json:"rating"`
	Reviews  int      `yaml:"reviews" json:"reviews"`
	Groups   []Group  `yaml:"groups" json:"groups"`
	Comments []Review `yaml:"comments" json:"comments"`
	Dates    Dates    `yaml:"dates" json:"dates"`
}

// Record is a looked-up user. Exactly one of Student or Professor is set.
type Record struct {
	Type      UserType         `json:"type"`
	Student   *StudentRecord   `json:"student,omitempty"`
	Professor *ProfessorRecord `json:"professor,omitempty"`
}

// Usable reports whether the record identifies a real user, which is the
// precondition for record-backed answers.
func (r *Record) Usable() bool {
	switch {
	case r == nil:
		return false
	case r.Student != nil:
		return r.Student.Boleta != ""
	case r.Professor != nil:
		return r.Professor.ID != ""
	default:
		return false
	}
}
