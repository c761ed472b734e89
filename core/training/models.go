package training

import (
	"encoding/json"

	"github.com/zubacap/zubacap-go/core/identity"
)

// Statuses and enumerations, as the backend spells them.
type (
	ProgramStatus    string
	GradeVisibility  string
	EnrollmentStatus string
	LessonStatus     string
	TestStatus       string

	// ProgramRole is a user's effective role within a program.
	// It is always derived from the program's rosters, never stored.
	ProgramRole string
)

const (
	ProgramDraft     ProgramStatus = "Borrador"
	ProgramPublished ProgramStatus = "Publicado"
	ProgramArchived  ProgramStatus = "Archivado"

	GradesInstructorOnly          GradeVisibility = "Solo_Instructor"
	GradesInstructorAndSupervisor GradeVisibility = "Instructor_y_Supervisor"
	GradesEveryone                GradeVisibility = "Todos"

	EnrollmentActive    EnrollmentStatus = "Activa"
	EnrollmentCompleted EnrollmentStatus = "Completada"
	EnrollmentCancelled EnrollmentStatus = "Cancelada"

	LessonNotStarted LessonStatus = "NoIniciado"
	LessonCompleted  LessonStatus = "Completado"

	TestPending   TestStatus = "Pendiente"
	TestSubmitted TestStatus = "Enviado"
	TestGraded    TestStatus = "Calificado"

	RoleInstructor ProgramRole = "Instructor"
	RoleSupervisor ProgramRole = "Supervisor"
	RoleStudent    ProgramRole = "Alumno"
)

// Program is a training offering; the aggregate root for display purposes.
// Relation slices are only present when fetched with populate.
type Program struct {
	ID                int                 `json:"id"`
	Name              string              `json:"nombre"`
	Description       string              `json:"descripcion"`
	StartDate         string              `json:"FechaInicio"`
	EndDate           string              `json:"FechaFin"`
	CoverImage        *Media              `json:"imagenPortada,omitempty"`
	Status            ProgramStatus       `json:"estado"`
	GradeVisibility   GradeVisibility     `json:"visibilidadCalificaciones"`
	OffersCertificate bool                `json:"ofreceCertificado"`
	Instructors       []identity.Identity `json:"instructores,omitempty"`
	Supervisors       []identity.Identity `json:"supervisores,omitempty"`
	Enrollments       []Enrollment        `json:"inscripciones,omitempty"`
	Modules           []Module            `json:"modulos,omitempty"`
	Tests             []Test              `json:"tests,omitempty"`
	Announcements     []Announcement      `json:"anuncios,omitempty"`
	InvitationCodes   []InvitationCode    `json:"codigos_invitacion,omitempty"`
}

// RoleOf derives the effective role of a user within the program:
// Instructor wins over Supervisor, anyone else is a Student.
func (p *Program) RoleOf(userID int) ProgramRole {
	for i := range p.Instructors {
		if p.Instructors[i].ID == userID {
			return RoleInstructor
		}
	}
	for i := range p.Supervisors {
		if p.Supervisors[i].ID == userID {
			return RoleSupervisor
		}
	}
	return RoleStudent
}

// Module is an ordered grouping of lessons within a program.
// Order defines the display sequence (ascending, not guaranteed contiguous).
type Module struct {
	ID      int      `json:"id"`
	Title   string   `json:"titulo"`
	Order   int      `json:"orden"`
	Lessons []Lesson `json:"lecciones,omitempty"`
}

// Lesson is a single content unit (text/video) within a module.
type Lesson struct {
	ID        int     `json:"id"`
	Title     string  `json:"titulo"`
	Content   string  `json:"contenido"`
	VideoURL  string  `json:"videoUrl,omitempty"`
	Order     int     `json:"orden"`
	Resources []Media `json:"recursos_adjuntos,omitempty"`
}

// Enrollment links one student to one program.
type Enrollment struct {
	ID             int                `json:"id"`
	EnrolledAt     string             `json:"fechaInscripcion"`
	Status         EnrollmentStatus   `json:"estado"`
	CompletedAt    string             `json:"fechaFinalizacion,omitempty"`
	CertificateURL string             `json:"urlCertificado,omitempty"`
	Student        *identity.Identity `json:"alumno,omitempty"`
	Program        *Program           `json:"capacitacion,omitempty"`
}

// LessonProgress links one student to one lesson. The backend does not
// enforce uniqueness of (student, lesson); callers needing idempotence
// must query-then-decide.
type LessonProgress struct {
	ID      int                `json:"id"`
	Status  LessonStatus       `json:"estado"`
	Student *identity.Identity `json:"alumno,omitempty"`
	Lesson  *Lesson            `json:"leccion,omitempty"`
}

// NewLessonProgress is the write payload for a progress record.
type NewLessonProgress struct {
	Lesson  int          `json:"leccion"`
	Student int          `json:"alumno"`
	Status  LessonStatus `json:"estado"`
}

// TestProgress tracks a student's attempt at a test. Answer is an opaque
// structured payload validated against a schema at the boundary.
type TestProgress struct {
	ID       int                `json:"id"`
	Answer   json.RawMessage    `json:"respuesta,omitempty"`
	Grade    *float64           `json:"calificacion,omitempty"`
	Feedback string             `json:"feedback,omitempty"`
	Status   TestStatus         `json:"estado"`
	Student  *identity.Identity `json:"alumno,omitempty"`
	Test     *Test              `json:"test,omitempty"`
}

// NewTestProgress is the write payload for a test submission.
type NewTestProgress struct {
	Test    int             `json:"test"`
	Student int             `json:"alumno"`
	Answer  json.RawMessage `json:"respuesta"`
	Status  TestStatus      `json:"estado"`
}

type Test struct {
	ID           int        `json:"id"`
	Title        string     `json:"titulo"`
	Instructions string     `json:"instrucciones"`
	Questions    []Question `json:"preguntas,omitempty"`
}

type Question struct {
	ID           int           `json:"id"`
	Statement    string        `json:"enunciado"`
	Alternatives []Alternative `json:"alternativas,omitempty"`
}

type Alternative struct {
	ID      int    `json:"id"`
	Text    string `json:"Texto"`
	Correct bool   `json:"esCorrecta"`
}

// InvitationCode grants registration access to a program, bounded by a usage quota.
type InvitationCode struct {
	ID          int      `json:"id"`
	Code        string   `json:"codigo"`
	MaxUses     int      `json:"usosMaximos"`
	CurrentUses int      `json:"usosActuales"`
	Program     *Program `json:"capacitacion,omitempty"`
	Company     *Company `json:"empresa,omitempty"`
}

// UsesRemaining reports how many redemptions are left on the code.
func (c *InvitationCode) UsesRemaining() int {
	if rem := c.MaxUses - c.CurrentUses; rem > 0 {
		return rem
	}
	return 0
}

type Company struct {
	ID           int    `json:"id"`
	Name         string `json:"nombre"`
	TaxID        string `json:"rut"`
	Address      string `json:"direccion,omitempty"`
	ContactName  string `json:"contactoNombre,omitempty"`
	ContactPhone string `json:"contactoTelefono,omitempty"`
	ContactEmail string `json:"contactoEmail,omitempty"`
}

type Announcement struct {
	ID      int    `json:"id"`
	Title   string `json:"titulo"`
	Content string `json:"contenido"`
}

type Media struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	MIME string `json:"mime,omitempty"`
	Size float64 `json:"size,omitempty"`
}
