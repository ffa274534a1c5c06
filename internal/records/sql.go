package records

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
)

// SQLConfig describes the records database. DSN wins over the discrete fields.
type SQLConfig struct {
	DSN             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	Timeout         time.Duration
}

// DataSource returns the go-sql-driver DSN for the config.
func (c SQLConfig) DataSource() string {
	if c.DSN != "" {
		return c.DSN
	}
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	port := c.Port
	if port == 0 {
		port = 3306
	}
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(port))
	mc.DBName = c.Name
	mc.ParseTime = true
	mc.Timeout = c.Timeout
	return mc.FormatDSN()
}

// SQLProvider loads records from the SAES relational schema. Queries use
// plain SQL so any database/sql driver with "?" placeholders works.
type SQLProvider struct {
	db  *sql.DB
	now func() time.Time
}

var _ Provider = (*SQLProvider)(nil)

// SQLOption configures an SQLProvider.
type SQLOption func(*SQLProvider)

// WithNow overrides the clock used for the re-enrollment window.
func WithNow(now func() time.Time) SQLOption {
	return func(p *SQLProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// NewSQLProvider wraps an open database handle.
func NewSQLProvider(db *sql.DB, opts ...SQLOption) (*SQLProvider, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	p := &SQLProvider{db: db, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// OpenMySQL connects to MySQL and verifies the connection.
func OpenMySQL(ctx context.Context, cfg SQLConfig, opts ...SQLOption) (*SQLProvider, error) {
	db, err := sql.Open("mysql", cfg.DataSource())
	if err != nil {
		return nil, saeserrors.New(saeserrors.ErrCodeDatabase, "open records database", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, saeserrors.New(saeserrors.ErrCodeDatabase, "connect to records database", err).
			WithDetail("addr", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	}
	slog.Info("records_db_connected", slog.String("database", cfg.Name))
	return NewSQLProvider(db, opts...)
}

// Close closes the database handle.
func (p *SQLProvider) Close() error { return p.db.Close() }

// Lookup implements Provider.
func (p *SQLProvider) Lookup(ctx context.Context, userType UserType, id string) (*Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, notFound(userType, id)
	}
	switch userType {
	case Student:
		s, err := p.student(ctx, id)
		if err != nil {
			return nil, p.wrap(err, userType, id)
		}
		return &Record{Type: Student, Student: s}, nil
	case Professor:
		pr, err := p.professor(ctx, id)
		if err != nil {
			return nil, p.wrap(err, userType, id)
		}
		return &Record{Type: Professor, Professor: pr}, nil
	default:
		return nil, notFound(userType, id)
	}
}

func (p *SQLProvider) wrap(err error, userType UserType, id string) error {
	if stderrors.Is(err, sql.ErrNoRows) {
		return notFound(userType, id)
	}
	return saeserrors.New(saeserrors.ErrCodeDatabase, fmt.Sprintf("load %s record", userType), err)
}

const studentInfoQuery = `
	SELECT dp.id, dp.nombre, dp.ape_paterno, dp.ape_materno, dp.email, dp.carrera, dp.telefono,
	       dp.calle, dp.num_exterior, dp.colonia, dp.delegacion, dp.ciudad, dp.codigo_postal,
	       e.promedio, e.creditos_disponibles, e.estado_academico
	FROM datos_personales AS dp
	JOIN estudiante AS e ON dp.id = e.id_usuario
	WHERE dp.id = ?`

func (p *SQLProvider) student(ctx context.Context, id string) (*StudentRecord, error) {
	var (
		boleta, name, first, last, email, career, phone sql.NullString
		street, number, colony, borough, city, postcode sql.NullString
		average, credits                                sql.NullFloat64
		status                                          sql.NullString
	)
	err := p.db.QueryRowContext(ctx, studentInfoQuery, id).Scan(
		&boleta, &name, &first, &last, &email, &career, &phone,
		&street, &number, &colony, &borough, &city, &postcode,
		&average, &credits, &status)
	if err != nil {
		return nil, err
	}

	s := &StudentRecord{
		Boleta:           boleta.String,
		Name:             fullName(name, first, last),
		Email:            email.String,
		Phone:            phone.String,
		Career:           career.String,
		AvailableCredits: credits.Float64,
		AcademicStatus:   status.String,
		Address: joinPresent(", ",
			street.String, prefixed("Núm. ", number), colony.String,
			borough.String, city.String, prefixed("CP ", postcode)),
	}
	if average.Valid {
		v := average.Float64
		s.Average = &v
	}

	steps := []func(context.Context, *StudentRecord) error{
		p.kardexSummary, p.approved, p.failed, p.enrolled, p.reenrollment,
	}
	for _, step := range steps {
		if err := step(ctx, s); err != nil {
			return nil, err
		}
	}
	if s.Dates, err = p.latestDates(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *SQLProvider) kardexSummary(ctx context.Context, s *StudentRecord) error {
	var situation sql.NullString
	var remaining sql.NullInt64
	err := p.db.QueryRowContext(ctx, `
		SELECT situacion_academica, semestres_restantes
		FROM kardex
		WHERE id_alumno = ?
		ORDER BY id DESC
		LIMIT 1`, s.Boleta).Scan(&situation, &remaining)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("kardex summary: %w", err)
	}
	s.KardexStatus = situation.String
	if remaining.Valid {
		n := int(remaining.Int64)
		s.RemainingSemesters = &n
	}
	return nil
}

func (p *SQLProvider) approved(ctx context.Context, s *StudentRecord) error {
	rows, err := p.db.QueryContext(ctx, `
		SELECT ua.unidad_aprendizaje, ua.calificacion_final, ua.semestre,
		       ua.metodo_aprobado, ua.periodo, ua.fecha
		FROM kardex AS k
		JOIN ua_aprobada AS ua ON k.id = ua.id_kardex
		WHERE k.id_alumno = ?
		ORDER BY ua.fecha DESC`, s.Boleta)
	if err != nil {
		return fmt.Errorf("approved courses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, grade, method, period sql.NullString
		var semester sql.NullInt64
		var date any
		if err := rows.Scan(&name, &grade, &semester, &method, &period, &date); err != nil {
			return fmt.Errorf("scan approved course: %w", err)
		}
		s.Approved = append(s.Approved, ApprovedCourse{
			Name:     name.String,
			Grade:    grade.String,
			Semester: int(semester.Int64),
			Method:   method.String,
			Period:   period.String,
			Date:     formatValue(date, dateLayout),
		})
	}
	return rows.Err()
}

func (p *SQLProvider) failed(ctx context.Context, s *StudentRecord) error {
	rows, err := p.db.QueryContext(ctx, `
		SELECT ua.nombre, mr.periodos_restantes, mr.estado_actual
		FROM materia_reprobada AS mr
		JOIN unidad_de_aprendizaje AS ua ON mr.id_ua = ua.id
		WHERE mr.id_estudiante = ?
		ORDER BY mr.id`, s.Boleta)
	if err != nil {
		return fmt.Errorf("failed courses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, status sql.NullString
		var left sql.NullInt64
		if err := rows.Scan(&name, &left, &status); err != nil {
			return fmt.Errorf("scan failed course: %w", err)
		}
		s.Failed = append(s.Failed, FailedCourse{Name: name.String, PeriodsLeft: int(left.Int64), Status: status.String})
	}
	return rows.Err()
}

func (p *SQLProvider) enrolled(ctx context.Context, s *StudentRecord) error {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT g.id, u.nombre, g.nombre, g.turno, u.credito,
		       dp.nombre, dp.ape_paterno, dp.ape_materno, u.semestre
		FROM horario AS h
		JOIN mat_inscritos AS mi ON h.id = mi.id_horario
		JOIN grupo AS g ON mi.id_grupo = g.id
		JOIN unidad_de_aprendizaje AS u ON g.id_ua = u.id
		JOIN datos_personales AS dp ON g.id_prof = dp.id
		WHERE h.id_alumno = ?
		ORDER BY u.nombre, g.nombre`, s.Boleta)
	if err != nil {
		return fmt.Errorf("enrolled courses: %w", err)
	}

	var groupIDs []any
	for rows.Next() {
		var gid any
		var course, group, shift, name, first, last sql.NullString
		var credits sql.NullFloat64
		var semester sql.NullInt64
		if err := rows.Scan(&gid, &course, &group, &shift, &credits, &name, &first, &last, &semester); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan enrolled course: %w", err)
		}
		groupIDs = append(groupIDs, gid)
		s.Enrolled = append(s.Enrolled, EnrolledCourse{
			Name:      course.String,
			Group:     group.String,
			Shift:     shift.String,
			Professor: fullName(name, first, last),
			Credits:   credits.Float64,
			Semester:  int(semester.Int64),
		})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("enrolled courses: %w", err)
	}
	_ = rows.Close()

	for i, gid := range groupIDs {
		slots, err := p.slots(ctx, gid)
		if err != nil {
			return err
		}
		s.Enrolled[i].Schedule = slots
	}
	return nil
}

func (p *SQLProvider) slots(ctx context.Context, groupID any) ([]Slot, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT dia, hora_ini, hora_fin
		FROM distribucion
		WHERE id_grupo = ?`, groupID)
	if err != nil {
		return nil, fmt.Errorf("group schedule: %w", err)
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		var day, start, end sql.NullString
		if err := rows.Scan(&day, &start, &end); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, Slot{Day: day.String, Start: FormatClock(start.String), End: FormatClock(end.String)})
	}
	SortSlots(out)
	return out, rows.Err()
}

func (p *SQLProvider) reenrollment(ctx context.Context, s *StudentRecord) error {
	now := p.now().Format(timestampLayout)
	var active int
	if err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM inscripcion
		WHERE id_alumno = ? AND ? BETWEEN fecha_hora_in AND fecha_hora_cad`,
		s.Boleta, now).Scan(&active); err != nil {
		return fmt.Errorf("re-enrollment window: %w", err)
	}

	var ends any
	if err := p.db.QueryRowContext(ctx, `
		SELECT MAX(fecha_hora_cad) FROM inscripcion WHERE id_alumno = ?`,
		s.Boleta).Scan(&ends); err != nil {
		return fmt.Errorf("re-enrollment deadline: %w", err)
	}
	s.ReenrollmentActive = active > 0
	s.ReenrollmentEnds = formatValue(ends, timestampLayout)
	return nil
}

func (p *SQLProvider) professor(ctx context.Context, id string) (*ProfessorRecord, error) {
	var pid, name, first, last, email, phone, degree sql.NullString
	var rating sql.NullFloat64
	err := p.db.QueryRowContext(ctx, `
		SELECT id, nombre, ape_paterno, ape_materno, email, telefono, grado, calificacion
		FROM datos_personales
		WHERE id = ? AND tipo_usuario = 'profesor'`, id).
		Scan(&pid, &name, &first, &last, &email, &phone, &degree, &rating)
	if err != nil {
		return nil, err
	}

	pr := &ProfessorRecord{
		ID:     pid.String,
		Name:   fullName(name, first, last),
		Email:  email.String,
		Phone:  phone.String,
		Degree: degree.String,
		Rating: rating.Float64,
	}
	if err := p.groups(ctx, pr); err != nil {
		return nil, err
	}
	if err := p.reviewStats(ctx, pr); err != nil {
		return nil, err
	}
	if err := p.comments(ctx, pr); err != nil {
		return nil, err
	}
	if pr.Dates, err = p.latestDates(ctx); err != nil {
		return nil, err
	}
	return pr, nil
}

func (p *SQLProvider) groups(ctx context.Context, pr *ProfessorRecord) error {
	rows, err := p.db.QueryContext(ctx, `
		SELECT ua.nombre, g.nombre, g.turno, g.cupo
		FROM grupo AS g
		JOIN unidad_de_aprendizaje AS ua ON g.id_ua = ua.id
		WHERE g.id_prof = ?
		ORDER BY g.nombre, ua.nombre`, pr.ID)
	if err != nil {
		return fmt.Errorf("professor groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var course, group, shift sql.NullString
		var capacity sql.NullInt64
		if err := rows.Scan(&course, &group, &shift, &capacity); err != nil {
			return fmt.Errorf("scan group: %w", err)
		}
		pr.Groups = append(pr.Groups, Group{Course: course.String, Name: group.String, Shift: shift.String, Capacity: int(capacity.Int64)})
	}
	return rows.Err()
}

// reviewStats prefers the running review counter over the stored rating.
func (p *SQLProvider) reviewStats(ctx context.Context, pr *ProfessorRecord) error {
	var count sql.NullInt64
	var sum sql.NullFloat64
	err := p.db.QueryRowContext(ctx, `
		SELECT registrados, suma FROM contador WHERE id_profesor = ?`, pr.ID).Scan(&count, &sum)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("review stats: %w", err)
	}
	if count.Int64 > 0 {
		pr.Reviews = int(count.Int64)
		pr.Rating = sum.Float64 / float64(count.Int64)
	}
	return nil
}

func (p *SQLProvider) comments(ctx context.Context, pr *ProfessorRecord) error {
	rows, err := p.db.QueryContext(ctx, `
		SELECT comentarios, calificacion, fecha
		FROM resena
		WHERE id_profesor = ?
		ORDER BY fecha DESC
		LIMIT 5`, pr.ID)
	if err != nil {
		return fmt.Errorf("reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var comment sql.NullString
		var rating sql.NullFloat64
		var date any
		if err := rows.Scan(&comment, &rating, &date); err != nil {
			return fmt.Errorf("scan review: %w", err)
		}
		pr.Comments = append(pr.Comments, Review{Comment: comment.String, Rating: rating.Float64, Date: formatValue(date, dateLayout)})
	}
	return rows.Err()
}

// latestDates reads the most recent calendar row, whatever its columns.
func (p *SQLProvider) latestDates(ctx context.Context) (Dates, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT * FROM fechas_relevantes ORDER BY inicio_semestre DESC LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("relevant dates: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("relevant dates columns: %w", err)
	}
	dates := make(Dates, len(cols))
	if !rows.Next() {
		return dates, rows.Err()
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan relevant dates: %w", err)
	}
	for i, c := range cols {
		dates[c] = formatValue(values[i], timestampLayout)
	}
	return dates, rows.Err()
}

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

// formatValue renders a raw driver value. Times use layout, NULL becomes "N/A".
func formatValue(v any, layout string) string {
	switch x := v.(type) {
	case nil:
		return NotAvailable
	case time.Time:
		return x.Format(layout)
	case []byte:
		return OrDefault(string(x), NotAvailable)
	case string:
		return OrDefault(x, NotAvailable)
	default:
		return fmt.Sprint(x)
	}
}

func fullName(parts ...sql.NullString) string {
	s := make([]string, 0, len(parts))
	for _, p := range parts {
		s = append(s, p.String)
	}
	return joinPresent(" ", s...)
}

func prefixed(prefix string, v sql.NullString) string {
	if !v.Valid || v.String == "" {
		return ""
	}
	return prefix + v.String
}

func joinPresent(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	return strings.Join(kept, sep)
}
