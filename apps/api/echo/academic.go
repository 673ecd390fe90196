package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/account"
)

type academicApi struct {
	svc    academic.Service
	accSvc account.Service
}

func registerAcademicAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := academicApi{svc: deps.AcademicSvc, accSvc: deps.AccountSvc}

	ag := g.Group("/admin", append(authed, roleMiddleware(account.RoleAdmin))...)
	ag.GET("/courses", api.listCourses)
	ag.POST("/courses", api.createCourse)
	ag.GET("/subjects", api.listSubjects)
	ag.POST("/subjects", api.createSubject)
	ag.GET("/subjects/:id", api.retrieveSubject)
	ag.GET("/semesters", api.listSemesters)
	ag.POST("/semesters", api.createSemester)
	ag.GET("/students", api.listStudents)
	ag.PUT("/students/:id", api.enrolStudent)
}

// Handlers

func (api *academicApi) listCourses(ctx echo.Context) error {
	courses, err := api.svc.ListCourses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *academicApi) createCourse(ctx echo.Context) error {
	var data academic.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	course, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, course)
}

func (api *academicApi) listSubjects(ctx echo.Context) error {
	var filter academic.SubjectFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to SubjectFilter")
	}
	subjects, err := api.svc.ListSubjects(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *academicApi) createSubject(ctx echo.Context) error {
	var data academic.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	subject, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subject)
}

func (api *academicApi) retrieveSubject(ctx echo.Context) error {
	subject, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	return ctx.JSON(http.StatusOK, subject)
}

func (api *academicApi) listSemesters(ctx echo.Context) error {
	semesters, err := api.svc.ListSemesters(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing semesters")
	}
	return ctx.JSON(http.StatusOK, semesters)
}

func (api *academicApi) createSemester(ctx echo.Context) error {
	var data academic.NewSemester
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSemester")
	}
	semester, err := api.svc.CreateSemester(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating semester")
	}
	return ctx.JSON(http.StatusCreated, semester)
}

func (api *academicApi) listStudents(ctx echo.Context) error {
	students, err := api.accSvc.QueryStudents(ctx.Request().Context(), ctx.QueryParam("course_id"))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

// enrolStudent places the student account :id in a course.
func (api *academicApi) enrolStudent(ctx echo.Context) error {
	var data account.Enrolment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Enrolment")
	}
	student, err := api.svc.Enrol(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusOK, student)
}
