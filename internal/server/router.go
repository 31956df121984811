package server

import (
	"io"
	"net/http"

	"github.com/charmbracelet/log"
)

const strayRequestPage = "Nothing to see here. Return to your terminal to finish signing in.\n"

// CallbackRouter serves the sign-in callback and answers anything else with 404.
//
// Routes are GET only. Middleware wraps the whole mux, so stray requests are logged too.
type CallbackRouter struct {
	mux   *http.ServeMux
	chain []Middleware
}

// NewCallbackRouter returns a router serving the routes of callback behind [RequestLogger].
func NewCallbackRouter(callback Handler, logger *log.Logger) *CallbackRouter {
	r := &CallbackRouter{mux: http.NewServeMux()}
	r.mux.HandleFunc("GET /", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, strayRequestPage)
	})
	r.Use(RequestLogger(logger))
	r.Handler(callback)
	return r
}

// Use appends middleware. The first one added sees the request first.
func (r *CallbackRouter) Use(middleware ...Middleware) {
	r.chain = append(r.chain, middleware...)
}

// Handle registers handler for method and path. Other methods on path get 405.
func (r *CallbackRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(method+" "+path, handler)
}

// Handler registers every route of h for GET.
func (r *CallbackRouter) Handler(h Handler) {
	for _, route := range h.Routes() {
		r.Handle(http.MethodGet, route, h)
	}
}

func (r *CallbackRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.mux
	for i := len(r.chain) - 1; i >= 0; i-- {
		h = r.chain[i](h)
	}
	h.ServeHTTP(w, req)
}
