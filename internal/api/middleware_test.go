package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"
)

func TestLoggingMiddlewareRequestID(t *testing.T) {
	ts := newTestServer(t, &fakeChatService{}, &fakeSearcher{})

	rec := ts.do(http.MethodGet, "/health", "")
	id := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	// each request gets its own id
	other := ts.do(http.MethodGet, "/health", "").Header().Get("X-Request-ID")
	assert.NotEqual(t, id, other)
}

func TestRecoveryMiddleware(t *testing.T) {
	ts := newTestServer(t, &fakeChatService{}, &fakeSearcher{})
	ts.srv.Mount("/boom", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	rec := ts.do(http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_error")
}

func TestChainOrder(t *testing.T) {
	var calls []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "handler")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	chain(final, mark("outer"), mark("inner")).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, []string{"outer", "inner", "handler"}, calls)
}
