package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/etests/etests-backend/internal/model"
	"github.com/gin-gonic/gin"
)

func bindQuestion(t *testing.T, body string) map[string]string {
	t.Helper()
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req model.AddQuestionRequest
	return Bind(c, &req)
}

func TestBindAddQuestion(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Setup()

	tests := []struct {
		name           string
		body           string
		wantErr        bool
		wantOneCorrect bool
		wantField      string
	}{
		{
			name: "valid",
			body: `{"content":"2+2?","options":[{"content":"4","is_correct":true},{"content":"5"}]}`,
		},
		{
			name:           "no correct option",
			body:           `{"content":"2+2?","options":[{"content":"4"},{"content":"5"}]}`,
			wantErr:        true,
			wantOneCorrect: true,
		},
		{
			name:           "two correct options",
			body:           `{"content":"2+2?","options":[{"content":"4","is_correct":true},{"content":"5","is_correct":true}]}`,
			wantErr:        true,
			wantOneCorrect: true,
		},
		{
			name:      "missing content",
			body:      `{"options":[{"content":"4","is_correct":true},{"content":"5"}]}`,
			wantErr:   true,
			wantField: "content",
		},
		{
			name:      "wrong type",
			body:      `{"content":5,"options":[{"content":"4","is_correct":true},{"content":"5"}]}`,
			wantErr:   true,
			wantField: "content",
		},
		{
			name:      "empty body",
			body:      ``,
			wantErr:   true,
			wantField: "detail",
		},
		{
			name:      "malformed json",
			body:      `{"content":`,
			wantErr:   true,
			wantField: "detail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := bindQuestion(t, tt.body)
			if (fields != nil) != tt.wantErr {
				t.Fatalf("fields = %v, wantErr %v", fields, tt.wantErr)
			}
			if got := ViolatesOneCorrect(fields); got != tt.wantOneCorrect {
				t.Errorf("ViolatesOneCorrect = %v, want %v (fields %v)", got, tt.wantOneCorrect, fields)
			}
			if tt.wantField != "" {
				if _, ok := fields[tt.wantField]; !ok {
					t.Errorf("fields %v missing %q", fields, tt.wantField)
				}
			}
		})
	}
}

func TestBindOptional(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Setup()

	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantCount int
	}{
		{"empty body", "", false, 0},
		{"empty object", "{}", false, 0},
		{"answers", `{"responses":[{"question_id":"6f1c1a8e-3c3b-4f57-9a44-8f0f2a1d9b10"}]}`, false, 1},
		{"answer without question", `{"responses":[{}]}`, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req model.SubmitAttemptRequest
			fields := BindOptional(c, &req)
			if (fields != nil) != tt.wantErr {
				t.Fatalf("fields = %v, wantErr %v", fields, tt.wantErr)
			}
			if !tt.wantErr && len(req.Responses) != tt.wantCount {
				t.Errorf("responses = %d, want %d", len(req.Responses), tt.wantCount)
			}
		})
	}
}

func TestBindUpdateExam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Setup()

	tests := []struct {
		name        string
		body        string
		wantErr     bool
		wantEndSet  bool
		wantEndNull bool
		wantDescSet bool
	}{
		{name: "absent", body: `{"title":"Physics"}`},
		{name: "null end date", body: `{"end_date":null}`, wantEndSet: true, wantEndNull: true},
		{name: "end date", body: `{"end_date":"2026-01-01T10:00:00Z"}`, wantEndSet: true},
		{name: "null description", body: `{"description":null}`, wantDescSet: true},
		{name: "long description", body: `{"description":"` + strings.Repeat("x", 5001) + `"}`, wantErr: true},
		{name: "bad end date", body: `{"end_date":"tomorrow"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req model.UpdateExamRequest
			fields := Bind(c, &req)
			if (fields != nil) != tt.wantErr {
				t.Fatalf("fields = %v, wantErr %v", fields, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if req.EndDate.Set != tt.wantEndSet || (req.EndDate.Value == nil) != (tt.wantEndNull || !tt.wantEndSet) {
				t.Errorf("EndDate = %+v", req.EndDate)
			}
			if req.Description.Set != tt.wantDescSet {
				t.Errorf("Description = %+v", req.Description)
			}
		})
	}
}
