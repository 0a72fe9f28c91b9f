package middleware

import (
	"net/http"

	hr "github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
)

// PanicRecoverer recovers from panic of underlying handlers
func PanicRecoverer() Middleware {
	return func(h hr.Handle) hr.Handle {
		return func(w http.ResponseWriter, r *http.Request, p hr.Params) {
			defer func() {
				if rsn := recover(); rsn != nil {
					log.WithField("panicReason", rsn).Error("got panic from underlying handler")
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			h(w, r, p)
		}
	}
}

// SessionGuard rejects requests which fail the given auth check. Guarded
// handlers therefore never observe an unauthenticated request. The check must
// not run before session hydration settles; onFail decides between a redirect
// to the login page and a plain 401.
func SessionGuard(authed func(*http.Request) bool, onFail http.HandlerFunc) Middleware {
	return func(h hr.Handle) hr.Handle {
		return func(w http.ResponseWriter, r *http.Request, p hr.Params) {
			if !authed(r) {
				onFail(w, r)
				return
			}
			h(w, r, p)
		}
	}
}

type Middleware func(hr.Handle) hr.Handle

// Chain composites given handler and middlewares
func Chain(h hr.Handle, ms ...Middleware) hr.Handle {
	for _, m := range ms {
		h = m(h)
	}
	return h
}
