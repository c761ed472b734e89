package training

import (
	"context"
	"encoding/json"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/zubacap/zubacap-go/core"
	"github.com/zubacap/zubacap-go/core/identity"
)

var (
	// errors
	ErrCodeNotFound    = errors.New("invitation code not found")
	ErrInvalidStatus   = errors.New("invalid progress status")
	ErrProgramNotFound = errors.New("program not found")
)

type (
	// Gateway is the backend boundary the service queries through.
	Gateway interface {
		Me(ctx context.Context) (identity.Identity, error)
		Programs(ctx context.Context) ([]Program, error)
		Program(ctx context.Context, id int) (Program, error)
		ProgramsByInstructor(ctx context.Context, userID int) ([]Program, error)
		ProgramsBySupervisor(ctx context.Context, userID int) ([]Program, error)
		EnrollmentsByStudent(ctx context.Context, userID int) ([]Enrollment, error)
		ModulesByProgram(ctx context.Context, programID int) ([]Module, error)
		LessonsByModule(ctx context.Context, moduleID int) ([]Lesson, error)
		LessonProgressByStudent(ctx context.Context, userID int) ([]LessonProgress, error)
		CreateLessonProgress(ctx context.Context, np NewLessonProgress) (LessonProgress, error)
		CreateTestProgress(ctx context.Context, np NewTestProgress) (TestProgress, error)
		InvitationCodesByCode(ctx context.Context, code string) ([]InvitationCode, error)
	}

	Service struct {
		gw Gateway
	}
)

func NewService(gw Gateway) *Service {
	return &Service{gw: gw}
}

// ProgramsForUser aggregates a user's programs from their three possible
// relationships: instructor, supervisor and enrolled student. The three
// queries run in parallel; a failure in any of them fails the whole
// aggregation. The union is deduplicated by program ID, keeping the first
// occurrence in instructor, supervisor, student order. Callers must still
// derive the effective role from membership (Program.RoleOf) rather than
// from a program's position in this list.
func (svc *Service) ProgramsForUser(ctx context.Context, userID int) ([]Program, error) {
	var (
		asInstructor []Program
		asSupervisor []Program
		enrollments  []Enrollment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		asInstructor, err = svc.gw.ProgramsByInstructor(gctx, userID)
		return
	})
	g.Go(func() (err error) {
		asSupervisor, err = svc.gw.ProgramsBySupervisor(gctx, userID)
		return
	})
	g.Go(func() (err error) {
		enrollments, err = svc.gw.EnrollmentsByStudent(gctx, userID)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var asStudent []Program
	for i := range enrollments {
		if p := enrollments[i].Program; p != nil {
			asStudent = append(asStudent, *p)
		}
	}

	seen := make(map[int]bool)
	programs := make([]Program, 0, len(asInstructor)+len(asSupervisor)+len(asStudent))
	for _, set := range [][]Program{asInstructor, asSupervisor, asStudent} {
		for _, p := range set {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			programs = append(programs, p)
		}
	}
	return programs, nil
}

// DeriveRole recomputes the user's effective role from the program rosters.
func (svc *Service) DeriveRole(p *Program, userID int) ProgramRole {
	return p.RoleOf(userID)
}

func (svc *Service) Programs(ctx context.Context) ([]Program, error) {
	return svc.gw.Programs(ctx)
}

func (svc *Service) Program(ctx context.Context, id int) (Program, error) {
	return svc.gw.Program(ctx, id)
}

func (svc *Service) ModulesForProgram(ctx context.Context, programID int) ([]Module, error) {
	return svc.gw.ModulesByProgram(ctx, programID)
}

func (svc *Service) LessonsForModule(ctx context.Context, moduleID int) ([]Lesson, error) {
	return svc.gw.LessonsByModule(ctx, moduleID)
}

func (svc *Service) LessonProgressForUser(ctx context.Context, userID int) ([]LessonProgress, error) {
	return svc.gw.LessonProgressByStudent(ctx, userID)
}

// RecordLessonProgress resolves the acting user and submits a progress
// record for the lesson. It always inserts; the backend keeps every record,
// so repeated calls for the same lesson accumulate rows. Callers that need
// one record per lesson should check LessonProgressForUser first.
func (svc *Service) RecordLessonProgress(ctx context.Context, lessonID int, status LessonStatus) (LessonProgress, error) {
	switch status {
	case LessonNotStarted, LessonCompleted:
	default:
		return LessonProgress{}, core.NewValidationError(ErrInvalidStatus,
			core.FieldError{Field: "estado", Error: ErrInvalidStatus.Error()})
	}

	me, err := svc.gw.Me(ctx)
	if err != nil {
		return LessonProgress{}, err
	}
	return svc.gw.CreateLessonProgress(ctx, NewLessonProgress{
		Lesson:  lessonID,
		Student: me.ID,
		Status:  status,
	})
}

// SubmitTestAnswer validates the opaque answer payload against the answer
// schema, then submits a TestProgress for the acting user.
func (svc *Service) SubmitTestAnswer(ctx context.Context, testID int, answer json.RawMessage) (TestProgress, error) {
	if err := ValidateAnswerPayload(ctx, answer); err != nil {
		return TestProgress{}, err
	}

	me, err := svc.gw.Me(ctx)
	if err != nil {
		return TestProgress{}, err
	}
	return svc.gw.CreateTestProgress(ctx, NewTestProgress{
		Test:    testID,
		Student: me.ID,
		Answer:  answer,
		Status:  TestSubmitted,
	})
}

// ValidateInvitationCode looks up an invitation code by exact match.
// The returned code may already be exhausted; UsesRemaining reports the
// quota left and callers decide whether to honor it.
func (svc *Service) ValidateInvitationCode(ctx context.Context, code string) (InvitationCode, error) {
	codes, err := svc.gw.InvitationCodesByCode(ctx, core.CleanString(code))
	if err != nil {
		return InvitationCode{}, err
	}
	if len(codes) == 0 {
		return InvitationCode{}, core.NewValidationError(ErrCodeNotFound,
			core.FieldError{Field: "codigo", Error: ErrCodeNotFound.Error()})
	}
	return codes[0], nil
}
