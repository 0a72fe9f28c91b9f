package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	hr "github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

func TestPanicRecoverer(t *testing.T) {
	wrec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fake", nil)
	prm := hr.Param{Key: "foo", Value: "bar"}
	cnt := 0
	touch := func() { cnt++ }
	h := func(w http.ResponseWriter, r *http.Request, p hr.Params) {
		touch()
		// params are passed through as expected
		assert.Equal(t, wrec, w, "unexpected response writer")
		assert.Equal(t, req, r, "unexpected request value")
		assert.Equal(t, hr.Params{prm}, p, "unexpected params value")
		panic("boom!")
	}
	wrapped := Chain(h, PanicRecoverer())

	wrapped(wrec, req, hr.Params{prm})
	assert.Equal(t, 1, cnt, "underlying handler not called by middleware")
	assert.Equal(t, http.StatusInternalServerError, wrec.Code, "panic should surface as 500")
}

func TestSessionGuard(t *testing.T) {
	tcs := []struct {
		name          string
		authed        bool
		expectHandler bool
		expectedCode  int
	}{
		{
			name:          "AuthedPassesThrough",
			authed:        true,
			expectHandler: true,
			expectedCode:  http.StatusOK,
		},
		{
			name:         "UnauthedRejected",
			expectedCode: http.StatusUnauthorized,
		},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			wrec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fake", nil)
			called := false
			h := func(w http.ResponseWriter, r *http.Request, p hr.Params) {
				called = true
				w.WriteHeader(http.StatusOK)
			}
			guard := SessionGuard(
				func(*http.Request) bool { return c.authed },
				func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) },
			)
			Chain(h, guard)(wrec, req, nil)

			assert.Equal(t, c.expectHandler, called, "unexpected handler invocation")
			assert.Equal(t, c.expectedCode, wrec.Code, "unexpected response status code")
		})
	}
}
