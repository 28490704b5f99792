package security

import (
	"net/http"
	"strings"
)

// CORS answers preflight requests and tags responses for allowed origins.
// An empty origin list allows any origin ("*").
type CORS struct {
	allowAll bool
	origins  map[string]struct{}
	methods  string
	headers  string
}

func NewCORS(allowedOrigins []string) *CORS {
	c := &CORS{
		origins: make(map[string]struct{}),
		methods: "GET, POST, PUT, DELETE, OPTIONS",
		headers: "Content-Type, X-Request-ID",
	}
	for _, o := range allowedOrigins {
		if o == "*" {
			c.allowAll = true
		}
		c.origins[strings.TrimRight(o, "/")] = struct{}{}
	}
	if len(allowedOrigins) == 0 {
		c.allowAll = true
	}
	return c
}

func (c *CORS) allowed(origin string) bool {
	if c.allowAll {
		return true
	}
	_, ok := c.origins[origin]
	return ok
}

func (c *CORS) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Add("Vary", "Origin")
		if !c.allowed(origin) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if c.allowAll {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
		}
		h.Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", c.methods)
			h.Set("Access-Control-Allow-Headers", c.headers)
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
