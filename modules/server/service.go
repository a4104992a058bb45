package server

import "net/http"

// RegistrableService mounts its routes on the shared mux and declares the
// middlewares it needs around the whole server.
type RegistrableService interface {
	Register(mux *http.ServeMux)
	Middlewares() []func(http.Handler) http.Handler
}
