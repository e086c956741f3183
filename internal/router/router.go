package router

import (
	"time"

	"github.com/etests/etests-backend/internal/config"
	"github.com/etests/etests-backend/internal/handler"
	"github.com/etests/etests-backend/internal/middleware"
	"github.com/etests/etests-backend/internal/model"
	"github.com/etests/etests-backend/internal/response"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Exam    *handler.ExamHandler
	Student *handler.StudentHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// A nil authLimiter leaves the auth routes unlimited.
func SetupRouter(
	auth middleware.Authenticator,
	handlers *Handlers,
	cfg *config.Config,
	authLimiter *middleware.RateLimiter,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	requireAuth := middleware.RequireAuth(auth)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authAPI := router.Group("/api/v1/auth")
	if authLimiter != nil {
		authAPI.Use(authLimiter.Middleware())
	}
	{
		authAPI.POST("/register", handlers.Auth.Register)
		authAPI.POST("/login", handlers.Auth.Login)
		authAPI.POST("/refresh", handlers.Auth.Refresh)

		authAPI.POST("/logout", requireAuth, handlers.Auth.Logout)
		authAPI.GET("/me", requireAuth, handlers.Auth.Me)
	}

	// ─── 2. Teacher Group (exam authoring) ─────────────────────────────
	teacherAPI := router.Group("/api/v1/exams")
	teacherAPI.Use(requireAuth, middleware.RequireRole(model.RoleTeacher))
	{
		teacherAPI.GET("", handlers.Exam.ListExams)
		teacherAPI.POST("", handlers.Exam.CreateExam)
		teacherAPI.GET("/:exam_id", handlers.Exam.GetExam)
		teacherAPI.PATCH("/:exam_id", handlers.Exam.UpdateExam)
		teacherAPI.DELETE("/:exam_id", handlers.Exam.DeleteExam)
		teacherAPI.POST("/:exam_id/questions", handlers.Exam.AddQuestion)
	}

	// ─── 3. Student Group (attempt lifecycle) ──────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(requireAuth, middleware.RequireRole(model.RoleStudent), middleware.NoStore())
	{
		studentAPI.GET("/exams", handlers.Student.ListExams)
		studentAPI.POST("/exams/:exam_id/start", handlers.Student.StartAttempt)
		studentAPI.GET("/attempts", handlers.Student.ListAttempts)
		studentAPI.GET("/attempts/:attempt_id", handlers.Student.GetAttemptResult)
		studentAPI.PUT("/attempts/:attempt_id/answers", handlers.Student.SaveAnswer)
		studentAPI.POST("/attempts/:attempt_id/submit", handlers.Student.SubmitAttempt)
	}

	// ─── 4. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(auth), middleware.RequireRole(model.RoleStudent))
	{
		ws.GET("/student/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	return router
}
