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

// ExamHandler handles teacher-side exam authoring endpoints. Every route is
// scoped to exams owned by the calling teacher.
type ExamHandler struct {
	examService *service.ExamService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

// ListExams godoc
// GET /api/v1/exams
// Lists the teacher's exams with question counts.
func (h *ExamHandler) ListExams(c *gin.Context) {
	claims := middleware.GetClaims(c)

	exams, err := h.examService.ListByTeacher(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// CreateExam godoc
// POST /api/v1/exams
// Creates an unpublished exam.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, exam)
}

// GetExam godoc
// GET /api/v1/exams/:exam_id
// Returns the full exam tree, correct options included.
func (h *ExamHandler) GetExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	exam, err := h.examService.GetOwned(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, exam)
}

// UpdateExam godoc
// PATCH /api/v1/exams/:exam_id
// Updates metadata, window, randomization and publish flags.
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), claims.UserID, examID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, exam)
}

// DeleteExam godoc
// DELETE /api/v1/exams/:exam_id
// Deletes an exam with its questions, attempts and responses.
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	if err := h.examService.Delete(c.Request.Context(), claims.UserID, examID); err != nil {
		fail(c, err)
		return
	}

	response.NoContent(c)
}

// AddQuestion godoc
// POST /api/v1/exams/:exam_id/questions
// Appends a question. Exactly one option must be correct.
func (h *ExamHandler) AddQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		if validator.ViolatesOneCorrect(fields) {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidSubmission, fields)
			return
		}
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.examService.AddQuestion(c.Request.Context(), claims.UserID, examID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, question)
}
