package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"detail":"Incorrect email or password"}`, "Incorrect email or password"},
		{"validation list", `{"detail":[{"loc":["body","amount"],"msg":"field required","type":"missing"},{"loc":["query","year"],"msg":"not an int"}]}`,
			"amount: field required; year: not an int"},
		{"list without loc", `{"detail":[{"msg":"bad"}]}`, "bad"},
		{"object", `{"detail":{"code":7}}`, `{"code":7}`},
		{"null", `{"detail":null}`, ""},
		{"no detail", `{"error":"x"}`, ""},
		{"not json", `<html>502</html>`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDetail([]byte(tt.body)))
		})
	}
}

func TestNewAPIError_FallsBackToBody(t *testing.T) {
	e := newAPIError(http.StatusBadGateway, "", []byte("upstream down\n"))

	assert.Equal(t, "upstream down", e.Message)
	assert.Empty(t, e.Detail())
	assert.Equal(t, "api: HTTP 502: upstream down", e.Error())
	assert.ErrorIs(t, e, ErrServerError)
}

func TestNewAPIError_EmptyBodyUsesStatusText(t *testing.T) {
	e := newAPIError(http.StatusNotFound, "abc", nil)

	assert.Equal(t, "Not Found", e.Message)
	assert.Equal(t, "api: HTTP 404 (request-id: abc): Not Found", e.Error())
}

func TestIsIdempotent(t *testing.T) {
	assert.True(t, isIdempotent(http.MethodGet))
	assert.True(t, isIdempotent(http.MethodPut))
	assert.True(t, isIdempotent(http.MethodDelete))
	assert.False(t, isIdempotent(http.MethodPost))
	assert.False(t, isIdempotent(http.MethodPatch))
}

func TestClassifyStatus_Unclassified(t *testing.T) {
	assert.NoError(t, classifyStatus(http.StatusTeapot))
	assert.ErrorIs(t, classifyStatus(http.StatusServiceUnavailable), ErrServerError)
}
