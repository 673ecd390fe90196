package echoapi

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/feedback"
	"github.com/trezcool/shule/core/leave"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	flashCookieName = "shule_flash"
	flashSuccess    = "success"
	flashError      = "error"
)

type templateRenderer struct {
	templates *template.Template
}

func newTemplateRenderer() *templateRenderer {
	return &templateRenderer{
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

type (
	flash struct {
		Kind    string
		Message string
	}

	pageData struct {
		AppName string
		Title   string
		Account account.Account
		Flash   *flash
		Data    interface{}
	}

	adminStats struct {
		Courses            int
		Subjects           int
		Students           int
		PendingLeaves      int
		UnansweredFeedback int
	}
)

func setFlash(ctx echo.Context, kind, msg string) {
	ctx.SetCookie(&http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(kind + "|" + msg),
		Path:     "/",
		HttpOnly: true,
	})
}

// popFlash reads the flash message left by the previous request and clears it.
func popFlash(ctx echo.Context) *flash {
	cookie, err := ctx.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	ctx.SetCookie(&http.Cookie{Name: flashCookieName, Path: "/", MaxAge: -1})

	val, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}
	parts := strings.SplitN(val, "|", 2)
	if len(parts) != 2 {
		return nil
	}
	return &flash{Kind: parts[0], Message: parts[1]}
}

// messageText flattens an error body into one line.
func messageText(msg interface{}) string {
	switch m := msg.(type) {
	case string:
		return m
	case map[string]string:
		fields := make([]string, 0, len(m))
		for fld := range m {
			fields = append(fields, fld)
		}
		sort.Strings(fields)
		lines := make([]string, 0, len(m))
		for _, fld := range fields {
			lines = append(lines, fld+": "+m[fld])
		}
		return strings.Join(lines, "; ")
	}
	return fmt.Sprint(msg)
}

type pages struct {
	deps ServerDeps
}

func registerPages(app *echo.Echo, deps ServerDeps) {
	p := &pages{deps: deps}

	app.GET("/login", p.loginForm)
	app.POST("/login", p.login)
	app.GET("/registration", p.registrationForm)
	app.POST("/registration", p.register)
	app.GET("/logout", p.logout)

	app.GET("/profile", p.profile, p.authMiddleware)
	app.POST("/profile", p.updateProfile, p.authMiddleware)

	student := []echo.MiddlewareFunc{p.authMiddleware, p.roleMiddleware(account.RoleStudent)}
	app.GET("/student_home", p.studentHome, student...)
	app.GET("/student/attendance", p.studentAttendance, student...)
	app.POST("/student/attendance", p.studentAttendanceRange, student...)
	app.GET("/student/leave", p.leaves("/student/leave"), student...)
	app.POST("/student/leave", p.submitLeave("/student/leave"), student...)
	app.GET("/student/feedback", p.feedback("/student/feedback"), student...)
	app.POST("/student/feedback", p.submitFeedback("/student/feedback"), student...)
	app.GET("/student/results", p.studentResults, student...)

	staff := []echo.MiddlewareFunc{p.authMiddleware, p.roleMiddleware(account.RoleStaff)}
	app.GET("/staff_home", p.staffHome, staff...)
	app.GET("/staff/leave", p.leaves("/staff/leave"), staff...)
	app.POST("/staff/leave", p.submitLeave("/staff/leave"), staff...)
	app.GET("/staff/feedback", p.feedback("/staff/feedback"), staff...)
	app.POST("/staff/feedback", p.submitFeedback("/staff/feedback"), staff...)

	app.GET("/admin_home", p.adminHome, p.authMiddleware, p.roleMiddleware(account.RoleAdmin))
}

// authMiddleware authenticates pages through the token cookie, sending anonymous visitors to the login page.
func (p *pages) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		cookie, err := ctx.Cookie(tokenCookieName)
		if err != nil {
			return ctx.Redirect(http.StatusFound, "/login")
		}
		token, err := parseToken(cookie.Value, p.deps.Conf.SecretKey)
		if err != nil {
			ctx.SetCookie(newTokenCookie("", time.Unix(0, 0)))
			return ctx.Redirect(http.StatusFound, "/login")
		}
		revoked, err := p.deps.Sessions.IsRevoked(ctx.Request().Context(), token.Claims.(*Claims).Id)
		if err != nil {
			return errors.Wrap(err, "checking token revocation")
		}
		if revoked {
			ctx.SetCookie(newTokenCookie("", time.Unix(0, 0)))
			return ctx.Redirect(http.StatusFound, "/login")
		}
		ctx.Set(contextTokenKey, token)
		return next(ctx)
	}
}

// roleMiddleware sends accounts visiting another role's page back to their own home.
func (p *pages) roleMiddleware(role account.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return ctx.Redirect(http.StatusFound, "/login")
			}
			if claims.Role != role {
				return ctx.Redirect(http.StatusFound, claims.Role.HomeRoute())
			}
			return next(ctx)
		}
	}
}

func (p *pages) render(ctx echo.Context, name, title string, data interface{}) error {
	pd := pageData{
		AppName: p.deps.Conf.AppName,
		Title:   title,
		Flash:   popFlash(ctx),
		Data:    data,
	}
	if acc, ok := ctx.Get(contextAccountKey).(account.Account); ok {
		pd.Account = acc
	}
	return ctx.Render(http.StatusOK, name, pd)
}

func (p *pages) redirect(ctx echo.Context, to, kind, msg string) error {
	setFlash(ctx, kind, msg)
	return ctx.Redirect(http.StatusFound, to)
}

// failure flashes what went wrong. Server-side failures are logged and shown as the generic message.
func (p *pages) failure(ctx echo.Context, err error, generic, to string) error {
	code, msg := errorResponse(err, p.deps.Translator)
	text := generic
	if code == http.StatusInternalServerError {
		var acc account.Account
		if claims, cErr := getContextClaims(ctx); cErr == nil {
			acc.ID = claims.Subject
			acc.Username = claims.Username
			acc.Email = claims.Email
		}
		p.deps.Logger.Error(generic, errors.Wrap(err, ctx.Request().Method+" "+ctx.Path()), acc)
	} else {
		text = messageText(msg)
	}
	return p.redirect(ctx, to, flashError, text)
}

// Handlers

func (p *pages) loginForm(ctx echo.Context) error {
	return p.render(ctx, "login.html", "Login", nil)
}

func (p *pages) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(p.deps.Validate); err != nil {
		return p.redirect(ctx, "/login", flashError, "Please provide all the details")
	}

	acc, err := p.deps.AccountSvc.Authenticate(ctx.Request().Context(), data.Login, data.Password)
	if err != nil {
		if core.IsAuth(err) {
			return p.redirect(ctx, "/login", flashError, "Invalid Login Credentials!!")
		}
		return errors.Wrap(err, "authenticating")
	}
	claims := GetAccountClaims(acc, p.deps.Conf)
	token, err := GenerateToken(claims, p.deps.Conf.SecretKey)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	ctx.SetCookie(newTokenCookie(token, time.Unix(claims.ExpiresAt, 0)))
	return ctx.Redirect(http.StatusFound, acc.Role.HomeRoute())
}

func (p *pages) registrationForm(ctx echo.Context) error {
	return p.render(ctx, "registration.html", "Registration", account.EmailFormat)
}

func (p *pages) register(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	if _, _, err := p.deps.AccountSvc.Register(ctx.Request().Context(), data); err != nil {
		return p.failure(ctx, err, "Failed to Register", "/registration")
	}
	return p.redirect(ctx, "/login", flashSuccess, "Successfully Registered, please login")
}

func (p *pages) logout(ctx echo.Context) error {
	if cookie, err := ctx.Cookie(tokenCookieName); err == nil {
		revokeToken(ctx, p.deps.Sessions, p.deps.Logger, cookie.Value, p.deps.Conf.SecretKey)
	}
	ctx.SetCookie(newTokenCookie("", time.Unix(0, 0)))
	return ctx.Redirect(http.StatusFound, "/login")
}

func (p *pages) profile(ctx echo.Context) error {
	acc, err := getContextAccount(ctx, p.deps.AccountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	prof, err := p.deps.AccountSvc.GetProfile(ctx.Request().Context(), acc)
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	return p.render(ctx, "profile.html", "Profile", prof)
}

func (p *pages) updateProfile(ctx echo.Context) error {
	acc, err := getContextAccount(ctx, p.deps.AccountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	// blank form fields leave the current values unchanged
	var data account.UpdateProfile
	for field, dst := range map[string]**string{
		"first_name": &data.FirstName,
		"last_name":  &data.LastName,
		"password":   &data.Password,
		"address":    &data.Address,
	} {
		if val := ctx.FormValue(field); val != "" {
			v := val
			*dst = &v
		}
	}

	if _, _, err = p.deps.AccountSvc.UpdateProfile(ctx.Request().Context(), acc, data); err != nil {
		return p.failure(ctx, err, "Failed to Update Profile", "/profile")
	}
	return p.redirect(ctx, "/profile", flashSuccess, "Profile Updated Successfully")
}

func (p *pages) studentHome(ctx echo.Context) error {
	student, err := getContextStudent(ctx, p.deps.AccountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context student")
	}
	summary, err := p.deps.AttendanceSvc.Summary(ctx.Request().Context(), student)
	if err != nil {
		return errors.Wrap(err, "computing attendance summary")
	}
	return p.render(ctx, "student_home.html", "Student Home", summary)
}

func (p *pages) studentAttendance(ctx echo.Context) error {
	student, err := getContextStudent(ctx, p.deps.AccountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context student")
	}
	subjects := []academic.Subject{}
	if student.CourseID != "" {
		subjects, err = p.deps.AcademicSvc.ListSubjects(ctx.Request().Context(), academic.SubjectFilter{CourseID: student.CourseID})
		if err != nil {
			return errors.Wrap(err, "listing subjects")
		}
	}
	return p.render(ctx, "student_attendance.html", "Attendance", subjects)
}

func (p *pages) studentAttendanceRange(ctx echo.Context) error {
	student, err := getContextStudent(ctx, p.deps.AccountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context student")
	}

	var query attendance.RangeQuery
	if err = ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to RangeQuery")
	}
	records, err := p.deps.AttendanceSvc.InRange(ctx.Request().Context(), student, query)
	if err != nil {
		return p.failure(ctx, err, "Failed to Fetch Attendance", "/student/attendance")
	}
	subject, err := p.deps.AcademicSvc.GetSubject(ctx.Request().Context(), query.SubjectID)
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	return p.render(ctx, "student_attendance_data.html", "Attendance", echo.Map{"Subject": subject, "Records": records})
}

func (p *pages) leaves(path string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		acc, err := getContextAccount(ctx, p.deps.AccountSvc)
		if err != nil {
			return errors.Wrap(err, "getting context account")
		}
		ordering := new(Ordering)
		if err = ordering.Bind(ctx, leave.OrderingFields); err != nil {
			return p.failure(ctx, err, "", path)
		}
		list, err := p.deps.LeaveSvc.ListOwn(ctx.Request().Context(), acc, ordering.Orderings)
		if err != nil {
			return errors.Wrap(err, "listing own leaves")
		}
		return p.render(ctx, "leave.html", "Apply for Leave", list)
	}
}

func (p *pages) submitLeave(path string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		acc, err := getContextAccount(ctx, p.deps.AccountSvc)
		if err != nil {
			return errors.Wrap(err, "getting context account")
		}
		var data leave.NewLeave
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to NewLeave")
		}
		if _, err = p.deps.LeaveSvc.Submit(ctx.Request().Context(), acc, data); err != nil {
			return p.failure(ctx, err, "Failed to Apply Leave", path)
		}
		return p.redirect(ctx, path, flashSuccess, "Applied for Leave.")
	}
}

func (p *pages) feedback(path string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		acc, err := getContextAccount(ctx, p.deps.AccountSvc)
		if err != nil {
			return errors.Wrap(err, "getting context account")
		}
		ordering := new(Ordering)
		if err = ordering.Bind(ctx, feedback.OrderingFields); err != nil {
			return p.failure(ctx, err, "", path)
		}
		list, err := p.deps.FeedbackSvc.ListOwn(ctx.Request().Context(), acc, ordering.Orderings)
		if err != nil {
			return errors.Wrap(err, "listing own feedback")
		}
		return p.render(ctx, "feedback.html", "Feedback", list)
	}
}

func (p *pages) submitFeedback(path string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		acc, err := getContextAccount(ctx, p.deps.AccountSvc)
		if err != nil {
			return errors.Wrap(err, "getting context account")
		}
		var data feedback.NewFeedback
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to NewFeedback")
		}
		if _, err = p.deps.FeedbackSvc.Submit(ctx.Request().Context(), acc, data); err != nil {
			return p.failure(ctx, err, "Failed to Send Feedback.", path)
		}
		return p.redirect(ctx, path, flashSuccess, "Feedback Sent.")
	}
}

func (p *pages) studentResults(ctx echo.Context) error {
	student, err := getContextStudent(ctx, p.deps.AccountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context student")
	}
	results, err := p.deps.ResultSvc.GetForStudent(ctx.Request().Context(), student)
	if err != nil {
		return errors.Wrap(err, "getting results")
	}
	return p.render(ctx, "results.html", "Results", results)
}

func (p *pages) staffHome(ctx echo.Context) error {
	acc, err := getContextAccount(ctx, p.deps.AccountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	subjects, err := p.deps.AcademicSvc.ListSubjects(ctx.Request().Context(), academic.SubjectFilter{StaffID: acc.ID})
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	return p.render(ctx, "staff_home.html", "Staff Home", subjects)
}

func (p *pages) adminHome(ctx echo.Context) error {
	if _, err := getContextAccount(ctx, p.deps.AccountSvc); err != nil {
		return errors.Wrap(err, "getting context account")
	}
	c := ctx.Request().Context()

	courses, err := p.deps.AcademicSvc.ListCourses(c)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	subjects, err := p.deps.AcademicSvc.ListSubjects(c, academic.SubjectFilter{})
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	students, err := p.deps.AccountSvc.QueryStudents(c, "")
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	pending, err := p.deps.LeaveSvc.ListAll(c, leave.StatusPending)
	if err != nil {
		return errors.Wrap(err, "listing pending leaves")
	}
	answered := false
	unanswered, err := p.deps.FeedbackSvc.ListAll(c, &answered)
	if err != nil {
		return errors.Wrap(err, "listing unanswered feedback")
	}

	return p.render(ctx, "admin_home.html", "Admin Home", adminStats{
		Courses:            len(courses),
		Subjects:           len(subjects),
		Students:           len(students),
		PendingLeaves:      len(pending),
		UnansweredFeedback: len(unanswered),
	})
}
