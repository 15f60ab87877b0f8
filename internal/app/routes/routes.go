package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/universys/universyslite/internal/app/controllers"
	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/middleware"
	"github.com/universys/universyslite/internal/pkg/metrics"
)

// Controllers groups every HTTP controller the router mounts
type Controllers struct {
	Auth       *controllers.AuthController
	Department *controllers.DepartmentController
	Student    *controllers.StudentController
	Instructor *controllers.InstructorController
	Course     *controllers.CourseController
	Term       *controllers.TermController
	Room       *controllers.RoomController
	Section    *controllers.SectionController
	Scheduling *controllers.SchedulingController
	Enrollment *controllers.EnrollmentController
	Grading    *controllers.GradingController
	Billing    *controllers.BillingController
	Audit      *controllers.AuditController
}

// Pinger is a dependency the health endpoint checks
type Pinger interface {
	Ping(ctx context.Context) error
}

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	c Controllers,
	authMiddleware *middleware.AuthMiddleware,
	m *metrics.Metrics,
	pingers map[string]Pinger,
) {
	router.GET("/ping", func(ctx *gin.Context) { ctx.String(http.StatusOK, "pong") })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	v1 := router.Group("/api/v1")
	v1.GET("/health", healthHandler(pingers))

	// --- Public routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/login", c.Auth.Login)
		auth.POST("/refresh", c.Auth.RefreshToken)
		auth.POST("/logout", c.Auth.Logout)
	}

	v1.GET("/departments", c.Department.GetAllDepartments)
	v1.GET("/departments/:id", c.Department.GetDepartmentByID)
	v1.GET("/instructors", c.Instructor.ListInstructors)
	v1.GET("/instructors/:id", c.Instructor.GetInstructorByID)
	v1.GET("/courses", c.Course.ListCourses)
	v1.GET("/courses/:id", c.Course.GetCourse)
	v1.GET("/terms", c.Term.ListTerms)
	v1.GET("/terms/current", c.Term.GetCurrentTerm)
	v1.GET("/terms/:id", c.Term.GetTerm)
	v1.GET("/sections", c.Section.ListSections)
	v1.GET("/sections/:id", c.Section.GetSection)
	v1.GET("/sections/:id/meetings", c.Scheduling.SectionMeetings)

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		authenticated.GET("/auth/me", c.Auth.Me)

		// students see only their own records; the services enforce it
		authenticated.GET("/students/me", c.Student.GetMyProfile)
		authenticated.GET("/students/:id", c.Student.GetStudent)
		authenticated.GET("/students/:id/enrollments", c.Enrollment.StudentEnrollments)
		authenticated.GET("/students/:id/transcript", c.Grading.Transcript)
		authenticated.GET("/students/:id/account", c.Billing.StudentAccount)

		authenticated.POST("/enrollments", c.Enrollment.Enroll)
		authenticated.POST("/enrollments/:id/drop", c.Enrollment.Drop)
		authenticated.GET("/invoices/:id", c.Billing.GetInvoice)

		authenticated.GET("/rooms", c.Room.ListRooms)
		authenticated.GET("/rooms/available", c.Scheduling.AvailableRooms)
		authenticated.GET("/rooms/:id", c.Room.GetRoom)
		authenticated.GET("/rooms/:id/schedule", c.Scheduling.RoomSchedule)
	}

	// instructors grade and read rosters of their own sections
	teaching := authenticated.Group("")
	teaching.Use(authMiddleware.RoleRequired(models.RoleAdmin, models.RoleRegistrar, models.RoleInstructor))
	{
		teaching.GET("/sections/:id/roster", c.Enrollment.SectionRoster)
		teaching.POST("/sections/:id/grades", c.Grading.PostSectionGrades)
		teaching.PUT("/enrollments/:id/grade", c.Grading.PostGrade)
	}

	// --- Staff routes ---
	staff := authenticated.Group("")
	staff.Use(authMiddleware.StaffOnly())
	{
		staff.GET("/users", c.Auth.ListUsers)
		staff.POST("/users", c.Auth.CreateUser)

		staff.POST("/departments", c.Department.CreateDepartment)
		staff.PUT("/departments/:id", c.Department.UpdateDepartment)
		staff.DELETE("/departments/:id", c.Department.DeleteDepartment)

		staff.GET("/students", c.Student.ListStudents)
		staff.POST("/students", c.Student.CreateStudent)
		staff.PUT("/students/:id", c.Student.UpdateStudent)
		staff.PATCH("/students/:id/status", c.Student.ChangeStudentStatus)

		staff.POST("/instructors", c.Instructor.CreateInstructor)
		staff.PUT("/instructors/:id", c.Instructor.UpdateInstructor)
		staff.DELETE("/instructors/:id", c.Instructor.DeleteInstructor)

		staff.POST("/courses", c.Course.CreateCourse)
		staff.PUT("/courses/:id", c.Course.UpdateCourse)
		staff.DELETE("/courses/:id", c.Course.DeleteCourse)
		staff.PUT("/courses/:id/prerequisites", c.Course.SetPrerequisites)

		staff.POST("/terms", c.Term.CreateTerm)
		staff.PUT("/terms/:id", c.Term.UpdateTerm)

		staff.POST("/rooms", c.Room.CreateRoom)
		staff.PUT("/rooms/:id", c.Room.UpdateRoom)
		staff.DELETE("/rooms/:id", c.Room.DeleteRoom)

		staff.POST("/sections", c.Section.CreateSection)
		staff.PATCH("/sections/:id/capacity", c.Section.UpdateCapacity)
		staff.PUT("/sections/:id/instructor", c.Section.AssignInstructor)
		staff.PATCH("/sections/:id/status", c.Section.SetStatus)
		staff.POST("/sections/:id/cancel", c.Section.CancelSection)
		staff.POST("/sections/:id/meetings", c.Scheduling.AddMeeting)
		staff.DELETE("/meetings/:id", c.Scheduling.RemoveMeeting)

		staff.POST("/invoices", c.Billing.GenerateInvoice)
		staff.POST("/invoices/:id/payments", c.Billing.RecordPayment)
		staff.POST("/invoices/:id/void", c.Billing.VoidInvoice)

		staff.GET("/audit-logs", c.Audit.ListAuditLogs)
	}

	router.NoRoute(func(ctx *gin.Context) {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Route not found")
		ctx.JSON(http.StatusNotFound, dto.NewErrorResponse(errorDetail))
	})
}

func healthHandler(pingers map[string]Pinger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(pingers))
		for name, p := range pingers {
			if err := p.Ping(checkCtx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		ctx.JSON(status, dto.APIResponse{
			Success:   status == http.StatusOK,
			Data:      gin.H{"status": http.StatusText(status), "checks": checks},
			Timestamp: time.Now().UTC(),
		})
	}
}
