package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ok", func(c *gin.Context) { Success(c, http.StatusOK, gin.H{"n": 1}) })
	r.GET("/fail", func(c *gin.Context) {
		FailWithFields(c, http.StatusBadRequest, ErrValidation, map[string]string{"email": "email is required"})
	})
	return r
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantKeep bool
	}{
		{"absent", "", false},
		{"kept", "req-42.a_b", true},
		{"too long", strings.Repeat("a", maxRequestIDLen+1), false},
		{"unsafe characters", "<script>", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ok", nil)
			if tt.header != "" {
				req.Header.Set(HeaderRequestID, tt.header)
			}
			rec := httptest.NewRecorder()
			newEngine().ServeHTTP(rec, req)

			got := rec.Header().Get(HeaderRequestID)
			if got == "" {
				t.Fatal("no request id in response")
			}
			if (got == tt.header) != tt.wantKeep {
				t.Errorf("request id = %q, header %q, wantKeep %v", got, tt.header, tt.wantKeep)
			}

			var body Envelope
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Metadata.RequestID != got {
				t.Errorf("metadata request id = %q, header %q", body.Metadata.RequestID, got)
			}
		})
	}
}

func TestFailWithFields(t *testing.T) {
	rec := httptest.NewRecorder()
	newEngine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Data  any       `json:"data"`
		Error ErrorBody `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data != nil || body.Error.Code != ErrValidation || body.Error.Fields["email"] == "" {
		t.Errorf("body = %+v", body)
	}
	if body.Error.Message != GetMessage(ErrValidation) {
		t.Errorf("message = %q", body.Error.Message)
	}
}

func TestAbortFailStopsChain(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	reached := false
	r.GET("/guarded",
		func(c *gin.Context) { AbortFail(c, http.StatusUnauthorized, ErrTokenRequired) },
		func(c *gin.Context) { reached = true; Success(c, http.StatusOK, nil) },
	)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/guarded", nil))

	if reached {
		t.Error("handler after AbortFail ran")
	}
	var body Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusUnauthorized || body.Error == nil || body.Error.Code != ErrTokenRequired {
		t.Errorf("got %d %+v", rec.Code, body.Error)
	}
	// No RequestIDMiddleware on this engine, so the id is generated.
	if body.Metadata.RequestID == "" {
		t.Error("metadata has no request id")
	}
}
