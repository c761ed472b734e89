package identity

import (
	"github.com/go-playground/validator/v10"

	"github.com/zubacap/zubacap-go/core"
)

// Identity is the backend's view of an authenticated account.
// Relation fields are only present when fetched with populate=*.
type Identity struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Confirmed bool   `json:"confirmed"`
	Blocked   bool   `json:"blocked"`
	Role      *Role  `json:"role,omitempty"`

	InstructorOf []ProgramRef    `json:"capacitaciones_como_instructor,omitempty"`
	SupervisorOf []ProgramRef    `json:"capacitaciones_como_supervisor,omitempty"`
	Enrollments  []EnrollmentRef `json:"inscripciones,omitempty"`
}

// Role is the account-level role tag assigned by the backend
// (not the per-program role, which is always derived).
type Role struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
}

// ProgramRef is a light reference to a program carried on the identity graph.
type ProgramRef struct {
	ID   int    `json:"id"`
	Name string `json:"nombre"`
}

// EnrollmentRef is a light reference to an enrollment carried on the identity graph.
type EnrollmentRef struct {
	ID     int    `json:"id"`
	Status string `json:"estado"`
}

// Session is the backend's response to a successful authentication.
type Session struct {
	Token string   `json:"jwt"`
	User  Identity `json:"user"`
}

// Credentials contains what is needed to sign in.
type Credentials struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Identifier = core.CleanString(c.Identifier, true /* lower */)
	return validate.Struct(c)
}

// NewAccount contains information needed to register a new account.
// InvitationCode, when set, is forwarded so the backend can associate
// the account with the code's program and company at creation time.
type NewAccount struct {
	Username        string `json:"username" validate:"required,min=3,alphanum_"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	InvitationCode  string `json:"codigo" validate:"omitempty"`
}

func (na *NewAccount) Validate(validate *validator.Validate) error {
	na.Username = core.CleanString(na.Username, true /* lower */)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.InvitationCode = core.CleanString(na.InvitationCode)
	return validate.Struct(na)
}
