package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projex/internal/core"
)

func TestJSONResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "1").
		List([]string{"a", "b"}, 2).
		Write(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("X-Custom"))
	assert.JSONEq(t, `{"success":true,"count":2,"data":["a","b"]}`, rr.Body.String())
}

func TestJSONResponseBuilder_TokenAndMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().Token("t").User(map[string]int{"id": 1}).Message("hi").
		Write(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.JSONEq(t, `{"success":true,"token":"t","user":{"id":1},"message":"hi"}`, rr.Body.String())
}

func TestErrorResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorResponse(http.StatusBadRequest, "Validation Error", "a", "b").
		Write(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"success":false,"message":"Validation Error","errors":["a","b"]}`, rr.Body.String())
}

func TestNonNil(t *testing.T) {
	var empty []int
	b, err := json.Marshal(nonNil(empty))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
	assert.Equal(t, []int{1}, nonNil([]int{1}))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.NotAuthorizedf("x"), http.StatusUnauthorized},
		{core.Forbiddenf("x"), http.StatusForbidden},
		{core.NotFoundf("x"), http.StatusNotFound},
		{core.Validationf("x"), http.StatusBadRequest},
		{core.Conflictf("x"), http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", core.NotFoundf("x")), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestWriteErrorHidesInternalFailures(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("sql: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"success":false,"message":"Server Error"}`, rr.Body.String())
}
