package handler

import (
	"net/http"

	"github.com/etests/etests-backend/internal/middleware"
	"github.com/etests/etests-backend/internal/model"
	"github.com/etests/etests-backend/internal/response"
	"github.com/etests/etests-backend/internal/service"
	"github.com/etests/etests-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// StudentHandler handles student-facing exam and attempt endpoints.
type StudentHandler struct {
	examService    *service.ExamService
	attemptService *service.AttemptService
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(examService *service.ExamService, attemptService *service.AttemptService) *StudentHandler {
	return &StudentHandler{
		examService:    examService,
		attemptService: attemptService,
	}
}

// ListExams godoc
// GET /api/v1/student/exams
// Lists exams that are published and inside their availability window.
func (h *StudentHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.ListAvailable(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// StartAttempt godoc
// POST /api/v1/student/exams/:exam_id/start
// Creates or resumes the student's attempt and returns the answer-blind exam
// with the server time and deadline.
func (h *StudentHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	payload, err := h.attemptService.Start(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, payload)
}

// SaveAnswer godoc
// PUT /api/v1/student/attempts/:attempt_id/answers
// Saves a draft selection for one question.
func (h *StudentHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := paramUUID(c, "attempt_id")
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.attemptService.SaveAnswer(c.Request.Context(), claims.UserID, attemptID, req.QuestionID, req.OptionID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved", "question_id": req.QuestionID})
}

// SubmitAttempt godoc
// POST /api/v1/student/attempts/:attempt_id/submit
// Grades the submitted answers and closes the attempt. Past the deadline the
// attempt is closed at its deadline instead and the sent answers are ignored.
func (h *StudentHandler) SubmitAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := paramUUID(c, "attempt_id")
	if !ok {
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), claims.UserID, attemptID, req.Responses)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ListAttempts godoc
// GET /api/v1/student/attempts
// Lists the student's attempts. Scores are null until results are published.
func (h *StudentHandler) ListAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attempts, err := h.attemptService.ListAttempts(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// GetAttemptResult godoc
// GET /api/v1/student/attempts/:attempt_id
// Returns the result of a submitted attempt, gated by the results-publish flag.
func (h *StudentHandler) GetAttemptResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := paramUUID(c, "attempt_id")
	if !ok {
		return
	}

	result, err := h.attemptService.GetResult(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
