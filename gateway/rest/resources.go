package rest

import (
	"context"
	"fmt"

	"github.com/zubacap/zubacap-go/core/training"
)

// Collection paths, as the backend names them.
const (
	programsPath        = "/capacitacions"
	modulesPath         = "/modulos"
	lessonsPath         = "/leccions"
	lessonProgressPath  = "/progreso-leccions"
	testProgressPath    = "/progreso-test-alumnos"
	enrollmentsPath     = "/inscripcions"
	invitationCodesPath = "/codigo-invitacions"
)

var _ training.Gateway = (*Client)(nil)

func (c *Client) Programs(ctx context.Context) ([]training.Program, error) {
	var programs []training.Program
	err := c.getData(ctx, programsPath, NewQuery().Populate("*").Values(), &programs)
	return programs, err
}

func (c *Client) Program(ctx context.Context, id int) (training.Program, error) {
	var program training.Program
	err := c.getData(ctx, fmt.Sprintf("%s/%d", programsPath, id), NewQuery().Populate("deep").Values(), &program)
	return program, err
}

func (c *Client) ProgramsByInstructor(ctx context.Context, userID int) ([]training.Program, error) {
	var programs []training.Program
	q := NewQuery().FilterRelation("instructores", userID).Populate("*")
	err := c.getData(ctx, programsPath, q.Values(), &programs)
	return programs, err
}

func (c *Client) ProgramsBySupervisor(ctx context.Context, userID int) ([]training.Program, error) {
	var programs []training.Program
	q := NewQuery().FilterRelation("supervisores", userID).Populate("*")
	err := c.getData(ctx, programsPath, q.Values(), &programs)
	return programs, err
}

func (c *Client) EnrollmentsByStudent(ctx context.Context, userID int) ([]training.Enrollment, error) {
	var enrollments []training.Enrollment
	q := NewQuery().FilterRelation("alumno", userID).Populate("*")
	err := c.getData(ctx, enrollmentsPath, q.Values(), &enrollments)
	return enrollments, err
}

func (c *Client) ModulesByProgram(ctx context.Context, programID int) ([]training.Module, error) {
	var modules []training.Module
	q := NewQuery().FilterRelation("capacitacion", programID).Populate("*").SortAsc("orden")
	err := c.getData(ctx, modulesPath, q.Values(), &modules)
	return modules, err
}

func (c *Client) LessonsByModule(ctx context.Context, moduleID int) ([]training.Lesson, error) {
	var lessons []training.Lesson
	q := NewQuery().FilterRelation("modulo", moduleID).Populate("*").SortAsc("orden")
	err := c.getData(ctx, lessonsPath, q.Values(), &lessons)
	return lessons, err
}

func (c *Client) LessonProgressByStudent(ctx context.Context, userID int) ([]training.LessonProgress, error) {
	var records []training.LessonProgress
	q := NewQuery().FilterRelation("alumno", userID).Populate("*")
	err := c.getData(ctx, lessonProgressPath, q.Values(), &records)
	return records, err
}

func (c *Client) CreateLessonProgress(ctx context.Context, np training.NewLessonProgress) (training.LessonProgress, error) {
	var record training.LessonProgress
	err := c.postData(ctx, lessonProgressPath, np, &record)
	return record, err
}

func (c *Client) CreateTestProgress(ctx context.Context, np training.NewTestProgress) (training.TestProgress, error) {
	var record training.TestProgress
	err := c.postData(ctx, testProgressPath, np, &record)
	return record, err
}

func (c *Client) InvitationCodesByCode(ctx context.Context, code string) ([]training.InvitationCode, error) {
	var codes []training.InvitationCode
	q := NewQuery().FilterEq("codigo", code).Populate("*")
	err := c.getData(ctx, invitationCodesPath, q.Values(), &codes)
	return codes, err
}
