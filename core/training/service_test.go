package training

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/zubacap/zubacap-go/core"
	"github.com/zubacap/zubacap-go/core/identity"
)

// fakeGateway implements Gateway with overridable funcs; unset funcs return
// zero values.
type fakeGateway struct {
	mu sync.Mutex

	meFunc                   func(ctx context.Context) (identity.Identity, error)
	programsByInstructorFunc func(ctx context.Context, userID int) ([]Program, error)
	programsBySupervisorFunc func(ctx context.Context, userID int) ([]Program, error)
	enrollmentsByStudentFunc func(ctx context.Context, userID int) ([]Enrollment, error)
	invitationCodesFunc      func(ctx context.Context, code string) ([]InvitationCode, error)

	createdLessonProgress []NewLessonProgress
	createdTestProgress   []NewTestProgress
}

func (gw *fakeGateway) Me(ctx context.Context) (identity.Identity, error) {
	if gw.meFunc != nil {
		return gw.meFunc(ctx)
	}
	return identity.Identity{ID: 1, Username: "awe", Email: "awe@test.cd"}, nil
}

func (gw *fakeGateway) Programs(context.Context) ([]Program, error)   { return nil, nil }
func (gw *fakeGateway) Program(context.Context, int) (Program, error) { return Program{}, nil }
func (gw *fakeGateway) ModulesByProgram(context.Context, int) ([]Module, error) {
	return nil, nil
}
func (gw *fakeGateway) LessonsByModule(context.Context, int) ([]Lesson, error) { return nil, nil }
func (gw *fakeGateway) LessonProgressByStudent(context.Context, int) ([]LessonProgress, error) {
	return nil, nil
}

func (gw *fakeGateway) ProgramsByInstructor(ctx context.Context, userID int) ([]Program, error) {
	if gw.programsByInstructorFunc != nil {
		return gw.programsByInstructorFunc(ctx, userID)
	}
	return nil, nil
}

func (gw *fakeGateway) ProgramsBySupervisor(ctx context.Context, userID int) ([]Program, error) {
	if gw.programsBySupervisorFunc != nil {
		return gw.programsBySupervisorFunc(ctx, userID)
	}
	return nil, nil
}

func (gw *fakeGateway) EnrollmentsByStudent(ctx context.Context, userID int) ([]Enrollment, error) {
	if gw.enrollmentsByStudentFunc != nil {
		return gw.enrollmentsByStudentFunc(ctx, userID)
	}
	return nil, nil
}

func (gw *fakeGateway) CreateLessonProgress(ctx context.Context, np NewLessonProgress) (LessonProgress, error) {
	gw.mu.Lock()
	gw.createdLessonProgress = append(gw.createdLessonProgress, np)
	id := len(gw.createdLessonProgress)
	gw.mu.Unlock()
	return LessonProgress{ID: id, Status: np.Status}, nil
}

func (gw *fakeGateway) CreateTestProgress(ctx context.Context, np NewTestProgress) (TestProgress, error) {
	gw.mu.Lock()
	gw.createdTestProgress = append(gw.createdTestProgress, np)
	id := len(gw.createdTestProgress)
	gw.mu.Unlock()
	return TestProgress{ID: id, Status: np.Status, Answer: np.Answer}, nil
}

func (gw *fakeGateway) InvitationCodesByCode(ctx context.Context, code string) ([]InvitationCode, error) {
	if gw.invitationCodesFunc != nil {
		return gw.invitationCodesFunc(ctx, code)
	}
	return nil, nil
}

func program(id int, name string) Program {
	return Program{ID: id, Name: name, Status: ProgramPublished}
}

func Test_Service_ProgramsForUser(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend down")

	tests := []struct {
		name         string
		asInstructor []Program
		asSupervisor []Program
		enrollments  []Enrollment
		failWith     error
		wantIDs      []int
		wantErr      error
	}{
		{name: "no programs", wantIDs: []int{}},
		{
			name:         "instructor only",
			asInstructor: []Program{program(1, "Seguridad")},
			wantIDs:      []int{1},
		},
		{
			name:         "union with dedup, instructor first",
			asInstructor: []Program{program(1, "Seguridad"), program(2, "Calidad")},
			asSupervisor: []Program{program(2, "Calidad"), program(3, "Bodega")},
			enrollments: []Enrollment{
				{ID: 10, Program: &Program{ID: 3, Name: "Bodega"}},
				{ID: 11, Program: &Program{ID: 4, Name: "Inducción"}},
			},
			wantIDs: []int{1, 2, 3, 4},
		},
		{
			name: "enrollment without populated program is skipped",
			enrollments: []Enrollment{
				{ID: 10},
				{ID: 11, Program: &Program{ID: 4, Name: "Inducción"}},
			},
			wantIDs: []int{4},
		},
		{
			name:         "one failing query fails the aggregation",
			asInstructor: []Program{program(1, "Seguridad")},
			failWith:     boom,
			wantErr:      boom,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{
				programsByInstructorFunc: func(context.Context, int) ([]Program, error) {
					return tt.asInstructor, nil
				},
				programsBySupervisorFunc: func(context.Context, int) ([]Program, error) {
					return tt.asSupervisor, nil
				},
				enrollmentsByStudentFunc: func(context.Context, int) ([]Enrollment, error) {
					if tt.failWith != nil {
						return nil, tt.failWith
					}
					return tt.enrollments, nil
				},
			}
			svc := NewService(gw)

			programs, err := svc.ProgramsForUser(ctx, 1)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Fatalf("ProgramsForUser() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ProgramsForUser() unexpected error = %v", err)
			}

			gotIDs := make([]int, 0, len(programs))
			for i := range programs {
				gotIDs = append(gotIDs, programs[i].ID)
			}
			if len(gotIDs) != len(tt.wantIDs) {
				t.Fatalf("ProgramsForUser() = %v, want IDs %v", gotIDs, tt.wantIDs)
			}
			for i := range tt.wantIDs {
				if gotIDs[i] != tt.wantIDs[i] {
					t.Errorf("ProgramsForUser()[%d].ID = %d, want %d", i, gotIDs[i], tt.wantIDs[i])
				}
			}
		})
	}
}

// a user can be instructor of one program and student of another at the same
// time; the role is derived per program, never from the aggregated list.
func Test_Service_DeriveRole_mixedMemberships(t *testing.T) {
	userID := 7
	teaching := Program{
		ID:          1,
		Name:        "Seguridad",
		Instructors: []identity.Identity{{ID: userID}},
	}
	attending := Program{
		ID:   2,
		Name: "Calidad",
	}

	gw := &fakeGateway{
		programsByInstructorFunc: func(context.Context, int) ([]Program, error) {
			return []Program{teaching}, nil
		},
		enrollmentsByStudentFunc: func(context.Context, int) ([]Enrollment, error) {
			return []Enrollment{{ID: 10, Program: &attending}}, nil
		},
	}
	svc := NewService(gw)

	programs, err := svc.ProgramsForUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("ProgramsForUser() failed: %v", err)
	}
	if len(programs) != 2 {
		t.Fatalf("ProgramsForUser() returned %d programs, want 2", len(programs))
	}

	wantRoles := map[int]ProgramRole{1: RoleInstructor, 2: RoleStudent}
	for i := range programs {
		if got := svc.DeriveRole(&programs[i], userID); got != wantRoles[programs[i].ID] {
			t.Errorf("DeriveRole(program %d) = %s, want %s", programs[i].ID, got, wantRoles[programs[i].ID])
		}
	}
}

func Test_Service_RecordLessonProgress(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid status is rejected before any call", func(t *testing.T) {
		meCalled := false
		gw := &fakeGateway{
			meFunc: func(context.Context) (identity.Identity, error) {
				meCalled = true
				return identity.Identity{ID: 1}, nil
			},
		}
		svc := NewService(gw)

		_, err := svc.RecordLessonProgress(ctx, 3, LessonStatus("Terminado"))
		vErr, ok := err.(*core.ValidationError)
		if !ok {
			t.Fatalf("RecordLessonProgress() error = %v, want *core.ValidationError", err)
		}
		if len(vErr.Fields) != 1 || vErr.Fields[0].Field != "estado" {
			t.Errorf("ValidationError.Fields = %v, want one entry for 'estado'", vErr.Fields)
		}
		if meCalled {
			t.Error("gateway should not be reached with an invalid status")
		}
	})

	t.Run("record carries the acting user", func(t *testing.T) {
		gw := &fakeGateway{
			meFunc: func(context.Context) (identity.Identity, error) {
				return identity.Identity{ID: 42}, nil
			},
		}
		svc := NewService(gw)

		record, err := svc.RecordLessonProgress(ctx, 3, LessonCompleted)
		if err != nil {
			t.Fatalf("RecordLessonProgress() failed: %v", err)
		}
		if record.Status != LessonCompleted {
			t.Errorf("record.Status = %s, want %s", record.Status, LessonCompleted)
		}
		want := NewLessonProgress{Lesson: 3, Student: 42, Status: LessonCompleted}
		if len(gw.createdLessonProgress) != 1 || gw.createdLessonProgress[0] != want {
			t.Errorf("created = %v, want [%v]", gw.createdLessonProgress, want)
		}
	})

	t.Run("repeated records accumulate", func(t *testing.T) {
		gw := &fakeGateway{}
		svc := NewService(gw)

		if _, err := svc.RecordLessonProgress(ctx, 3, LessonCompleted); err != nil {
			t.Fatalf("RecordLessonProgress() failed: %v", err)
		}
		if _, err := svc.RecordLessonProgress(ctx, 3, LessonCompleted); err != nil {
			t.Fatalf("RecordLessonProgress() failed: %v", err)
		}
		if len(gw.createdLessonProgress) != 2 {
			t.Errorf("created %d records, want 2 (backend keeps every record)", len(gw.createdLessonProgress))
		}
	})

	t.Run("identity failure propagates", func(t *testing.T) {
		boom := errors.New("401")
		gw := &fakeGateway{
			meFunc: func(context.Context) (identity.Identity, error) {
				return identity.Identity{}, boom
			},
		}
		svc := NewService(gw)

		if _, err := svc.RecordLessonProgress(ctx, 3, LessonCompleted); err != boom {
			t.Errorf("RecordLessonProgress() error = %v, want %v", err, boom)
		}
		if len(gw.createdLessonProgress) != 0 {
			t.Error("no record should be created when the identity cannot be resolved")
		}
	})
}

func Test_Service_SubmitTestAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("valid payload is submitted as Enviado", func(t *testing.T) {
		gw := &fakeGateway{
			meFunc: func(context.Context) (identity.Identity, error) {
				return identity.Identity{ID: 42}, nil
			},
		}
		svc := NewService(gw)

		answer := json.RawMessage(`{"respuestas":[{"pregunta":1,"alternativa":2}]}`)
		record, err := svc.SubmitTestAnswer(ctx, 9, answer)
		if err != nil {
			t.Fatalf("SubmitTestAnswer() failed: %v", err)
		}
		if record.Status != TestSubmitted {
			t.Errorf("record.Status = %s, want %s", record.Status, TestSubmitted)
		}
		if len(gw.createdTestProgress) != 1 {
			t.Fatalf("created %d records, want 1", len(gw.createdTestProgress))
		}
		np := gw.createdTestProgress[0]
		if np.Test != 9 || np.Student != 42 || np.Status != TestSubmitted {
			t.Errorf("created = %+v", np)
		}
	})

	t.Run("invalid payload never reaches the gateway", func(t *testing.T) {
		gw := &fakeGateway{}
		svc := NewService(gw)

		_, err := svc.SubmitTestAnswer(ctx, 9, json.RawMessage(`{"respuestas":[]}`))
		if _, ok := err.(*core.ValidationError); !ok {
			t.Fatalf("SubmitTestAnswer() error = %v, want *core.ValidationError", err)
		}
		if len(gw.createdTestProgress) != 0 {
			t.Error("no record should be created for an invalid payload")
		}
	})
}

func Test_Service_ValidateInvitationCode(t *testing.T) {
	ctx := context.Background()

	t.Run("code is trimmed before lookup", func(t *testing.T) {
		var queried string
		gw := &fakeGateway{
			invitationCodesFunc: func(_ context.Context, code string) ([]InvitationCode, error) {
				queried = code
				return []InvitationCode{{ID: 1, Code: code, MaxUses: 10, CurrentUses: 3}}, nil
			},
		}
		svc := NewService(gw)

		match, err := svc.ValidateInvitationCode(ctx, "  ACME2024 ")
		if err != nil {
			t.Fatalf("ValidateInvitationCode() failed: %v", err)
		}
		if queried != "ACME2024" {
			t.Errorf("queried code = %q, want %q", queried, "ACME2024")
		}
		if match.UsesRemaining() != 7 {
			t.Errorf("UsesRemaining() = %d, want 7", match.UsesRemaining())
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		svc := NewService(&fakeGateway{})

		_, err := svc.ValidateInvitationCode(ctx, "NOPE")
		vErr, ok := err.(*core.ValidationError)
		if !ok {
			t.Fatalf("ValidateInvitationCode() error = %v, want *core.ValidationError", err)
		}
		if len(vErr.Fields) != 1 || vErr.Fields[0].Field != "codigo" {
			t.Errorf("ValidationError.Fields = %v, want one entry for 'codigo'", vErr.Fields)
		}
	})

	t.Run("exhausted code still matches", func(t *testing.T) {
		gw := &fakeGateway{
			invitationCodesFunc: func(_ context.Context, code string) ([]InvitationCode, error) {
				return []InvitationCode{{ID: 1, Code: code, MaxUses: 5, CurrentUses: 5}}, nil
			},
		}
		svc := NewService(gw)

		match, err := svc.ValidateInvitationCode(ctx, "FULL")
		if err != nil {
			t.Fatalf("ValidateInvitationCode() failed: %v", err)
		}
		if match.UsesRemaining() != 0 {
			t.Errorf("UsesRemaining() = %d, want 0", match.UsesRemaining())
		}
	})
}
