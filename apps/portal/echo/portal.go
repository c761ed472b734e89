package echoportal

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/zubacap/zubacap-go/cache"
	"github.com/zubacap/zubacap-go/core/identity"
	"github.com/zubacap/zubacap-go/core/session"
	"github.com/zubacap/zubacap-go/core/training"
	"github.com/zubacap/zubacap-go/gateway/rest"
)

type portalApi struct {
	deps ServerDeps
}

func registerPortalAPI(g *echo.Group, deps ServerDeps) {
	api := portalApi{deps: deps}

	// un-authed endpoints
	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/register", api.register)
	ag.POST("/logout", api.logout)
	g.GET("/invitations/:code", api.validateInvitation)

	// authed endpoints
	sg := g.Group("", requireSession(deps))
	sg.GET("/auth/me", api.me)
	sg.GET("/dashboard", api.dashboard)
	sg.GET("/programs/:id/modules", api.programModules)
	sg.GET("/modules/:id/lessons", api.moduleLessons)
	sg.GET("/progress", api.lessonProgress)
	sg.POST("/lessons/:id/progress", api.recordProgress)
	sg.POST("/tests/:id/answers", api.submitAnswer)
}

// connect builds the request-scoped gateway client, query service and
// session store, all sharing the request's cookie credential.
func (api *portalApi) connect(ctx echo.Context) (*rest.Client, *training.Service, *session.Store) {
	creds := newCookieCredentials(ctx, api.deps.Conf.Portal.CookieName)
	client := api.deps.NewClient(creds)
	st := session.NewStore(client, creds, api.deps.Validate, api.deps.Conf)
	client.OnSessionExpired(st.SessionExpired)
	return client, training.NewService(client), st
}

// requireSession gates a route group on the presence of a session cookie.
// The backend still has the last word: an expired or revoked token comes
// back as a 401 which evicts the cookie.
func requireSession(deps ServerDeps) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			creds := newCookieCredentials(ctx, deps.Conf.Portal.CookieName)
			if _, ok := creds.Token(); !ok {
				return errUnauthorized
			}
			return next(ctx)
		}
	}
}

// Handlers

func (api *portalApi) login(ctx echo.Context) error {
	var data identity.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}

	_, _, st := api.connect(ctx)
	if err := st.Login(ctx.Request().Context(), data.Identifier, data.Password); err != nil {
		return err
	}
	usr, _ := st.Identity()
	return ctx.JSON(http.StatusOK, usr)
}

func (api *portalApi) register(ctx echo.Context) error {
	var data identity.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}

	_, _, st := api.connect(ctx)
	if err := st.Register(ctx.Request().Context(), data); err != nil {
		return err
	}
	usr, _ := st.Identity()
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *portalApi) logout(ctx echo.Context) error {
	_, _, st := api.connect(ctx)
	st.Logout()
	return ctx.NoContent(http.StatusNoContent)
}

func (api *portalApi) me(ctx echo.Context) error {
	client, _, _ := api.connect(ctx)
	usr, err := client.Me(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "fetching identity")
	}
	return ctx.JSON(http.StatusOK, usr)
}

type dashboardProgram struct {
	training.Program
	Role training.ProgramRole `json:"rol"`
}

func (api *portalApi) dashboard(ctx echo.Context) error {
	client, svc, _ := api.connect(ctx)
	reqCtx := ctx.Request().Context()

	usr, err := client.Me(reqCtx)
	if err != nil {
		return errors.Wrap(err, "fetching identity")
	}

	val, err := api.deps.Cache.Do(cache.Key("programs", usr.ID), api.deps.Conf.Session.CacheTTL, func() (interface{}, error) {
		return svc.ProgramsForUser(reqCtx, usr.ID)
	})
	if err != nil {
		return errors.Wrap(err, "aggregating programs")
	}
	programs, ok := val.([]training.Program)
	if !ok {
		return errStaleResponse
	}

	view := make([]dashboardProgram, 0, len(programs))
	for i := range programs {
		view = append(view, dashboardProgram{
			Program: programs[i],
			Role:    svc.DeriveRole(&programs[i], usr.ID),
		})
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *portalApi) programModules(ctx echo.Context) error {
	programID, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	_, svc, _ := api.connect(ctx)
	reqCtx := ctx.Request().Context()

	val, err := api.deps.Cache.Do(cache.Key("modules", programID), api.deps.Conf.Session.CacheTTL, func() (interface{}, error) {
		return svc.ModulesForProgram(reqCtx, programID)
	})
	if err != nil {
		return errors.Wrap(err, "fetching modules")
	}
	modules, ok := val.([]training.Module)
	if !ok {
		return errStaleResponse
	}
	if modules == nil {
		modules = []training.Module{}
	}
	return ctx.JSON(http.StatusOK, modules)
}

func (api *portalApi) moduleLessons(ctx echo.Context) error {
	moduleID, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	_, svc, _ := api.connect(ctx)
	reqCtx := ctx.Request().Context()

	val, err := api.deps.Cache.Do(cache.Key("lessons", moduleID), api.deps.Conf.Session.CacheTTL, func() (interface{}, error) {
		return svc.LessonsForModule(reqCtx, moduleID)
	})
	if err != nil {
		return errors.Wrap(err, "fetching lessons")
	}
	lessons, ok := val.([]training.Lesson)
	if !ok {
		return errStaleResponse
	}
	if lessons == nil {
		lessons = []training.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *portalApi) lessonProgress(ctx echo.Context) error {
	client, svc, _ := api.connect(ctx)
	reqCtx := ctx.Request().Context()

	usr, err := client.Me(reqCtx)
	if err != nil {
		return errors.Wrap(err, "fetching identity")
	}

	val, err := api.deps.Cache.Do(cache.Key("progress", usr.ID), api.deps.Conf.Session.CacheTTL, func() (interface{}, error) {
		return svc.LessonProgressForUser(reqCtx, usr.ID)
	})
	if err != nil {
		return errors.Wrap(err, "fetching progress")
	}
	records, ok := val.([]training.LessonProgress)
	if !ok {
		return errStaleResponse
	}
	if records == nil {
		records = []training.LessonProgress{}
	}
	return ctx.JSON(http.StatusOK, records)
}

type progressRequest struct {
	Status training.LessonStatus `json:"estado"`
}

func (api *portalApi) recordProgress(ctx echo.Context) error {
	lessonID, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data progressRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to progressRequest")
	}

	_, svc, _ := api.connect(ctx)
	record, err := svc.RecordLessonProgress(ctx.Request().Context(), lessonID, data.Status)
	if err != nil {
		return errors.Wrap(err, "recording progress")
	}
	api.deps.Cache.Invalidate("progress")

	return ctx.JSON(http.StatusCreated, record)
}

type answerRequest struct {
	Answer json.RawMessage `json:"respuesta"`
}

func (api *portalApi) submitAnswer(ctx echo.Context) error {
	testID, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data answerRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to answerRequest")
	}

	_, svc, _ := api.connect(ctx)
	record, err := svc.SubmitTestAnswer(ctx.Request().Context(), testID, data.Answer)
	if err != nil {
		return errors.Wrap(err, "submitting answer")
	}
	return ctx.JSON(http.StatusCreated, record)
}

type invitationView struct {
	Code          string               `json:"codigo"`
	UsesRemaining int                  `json:"usosRestantes"`
	Program       *identity.ProgramRef `json:"capacitacion,omitempty"`
}

func (api *portalApi) validateInvitation(ctx echo.Context) error {
	_, svc, _ := api.connect(ctx)
	code, err := svc.ValidateInvitationCode(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "validating invitation code")
	}

	view := invitationView{Code: code.Code, UsesRemaining: code.UsesRemaining()}
	if code.Program != nil {
		view.Program = &identity.ProgramRef{ID: code.Program.ID, Name: code.Program.Name}
	}
	return ctx.JSON(http.StatusOK, view)
}

func intParam(ctx echo.Context, name string) (int, error) {
	val, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, errHttpBadParam
	}
	return val, nil
}
