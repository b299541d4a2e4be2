package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsSetStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *APIError
		status int
		code   ErrorCode
	}{
		{"not found", NotFound("user"), http.StatusNotFound, ErrNotFound},
		{"unauthorized", Unauthorized("nope"), http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", Forbidden("nope"), http.StatusForbidden, ErrForbidden},
		{"conflict", Conflict("username"), http.StatusConflict, ErrConflict},
		{"validation", ValidationError("code", "bad"), http.StatusUnprocessableEntity, ErrValidation},
		{"bad request", BadRequest("bad"), http.StatusBadRequest, ErrBadRequest},
		{"internal", InternalError("boom"), http.StatusInternalServerError, ErrInternalError},
		{"rate limited", RateLimited(""), http.StatusTooManyRequests, ErrRateLimited},
		{"unavailable", ServiceUnavailable("cache"), http.StatusServiceUnavailable, ErrServiceUnavail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "VALIDATION_ERROR: Verification code error (field: code)",
		ValidationError("code", "Verification code error").Error())
	assert.Equal(t, "NOT_FOUND: user not found", NotFound("user").Error())
	assert.Equal(t, "rate limit exceeded", RateLimited("").Message)
}

func TestUnknownCodeMapsTo500(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, ErrorCode("WHAT").StatusCode())
}
