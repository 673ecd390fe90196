package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/attendance"
)

type attendanceApi struct {
	svc         attendance.Service
	accSvc      account.Service
	academicSvc academic.Service
}

func registerAttendanceAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := attendanceApi{
		svc:         deps.AttendanceSvc,
		accSvc:      deps.AccountSvc,
		academicSvc: deps.AcademicSvc,
	}

	ag := g.Group("/attendance", authed...)
	ag.GET("/summary", api.summary, roleMiddleware(account.RoleStudent))
	ag.GET("", api.inRange, roleMiddleware(account.RoleStudent))
	ag.POST("", api.take, roleMiddleware(account.RoleStaff))
	ag.GET("/sessions", api.sessions, roleMiddleware(account.RoleStaff))

	// subjects taught by the authenticated staff & their students
	sg := g.Group("/subjects", append(authed, roleMiddleware(account.RoleStaff))...)
	sg.GET("", api.ownSubjects)
	sg.GET("/:id/students", api.subjectStudents)
}

// Handlers

func (api *attendanceApi) summary(ctx echo.Context) error {
	student, err := getContextStudent(ctx, api.accSvc)
	if err != nil {
		return errors.Wrap(err, "getting context student")
	}
	summary, err := api.svc.Summary(ctx.Request().Context(), student)
	if err != nil {
		return errors.Wrap(err, "computing attendance summary")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *attendanceApi) inRange(ctx echo.Context) error {
	student, err := getContextStudent(ctx, api.accSvc)
	if err != nil {
		return errors.Wrap(err, "getting context student")
	}

	var query attendance.RangeQuery
	if err = ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to RangeQuery")
	}
	records, err := api.svc.InRange(ctx.Request().Context(), student, query)
	if err != nil {
		return errors.Wrap(err, "querying attendance in range")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) take(ctx echo.Context) error {
	staff, err := getContextAccount(ctx, api.accSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	var data attendance.NewSession
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	taken, err := api.svc.Take(ctx.Request().Context(), staff, data)
	if err != nil {
		return errors.Wrap(err, "taking attendance")
	}
	return ctx.JSON(http.StatusCreated, taken)
}

func (api *attendanceApi) sessions(ctx echo.Context) error {
	staff, err := getContextAccount(ctx, api.accSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	subjectID := ctx.QueryParam("subject_id")
	if subjectID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "subject_id", Error: "this field is required"})
	}
	sessions, err := api.svc.ListSessions(ctx.Request().Context(), staff, subjectID)
	if err != nil {
		return errors.Wrap(err, "listing attendance sessions")
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *attendanceApi) ownSubjects(ctx echo.Context) error {
	staff, err := getContextAccount(ctx, api.accSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	subjects, err := api.academicSvc.ListSubjects(ctx.Request().Context(), academic.SubjectFilter{StaffID: staff.ID})
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *attendanceApi) subjectStudents(ctx echo.Context) error {
	staff, err := getContextAccount(ctx, api.accSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	subject, err := api.academicSvc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	if subject.StaffID != staff.ID {
		return errHttpNotFound
	}
	students, err := api.accSvc.QueryStudents(ctx.Request().Context(), subject.CourseID)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}
