package middleware

import (
	"net/http"
	"slices"
	"strings"
)

// CORSConfig is the cross-origin policy for the API.
type CORSConfig struct {
	// Origins lists the allowed origins. Empty or "*" allows any origin.
	Origins []string
	// Methods maps each routed path to the methods registered on it.
	Methods map[string][]string
}

// CORS returns middleware that answers preflights and sets CORS headers for
// allowed origins. The advertised methods are the ones routed on the
// request path; preflights for unrouted paths get 404.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	allowMethods := make(map[string]string, len(cfg.Methods))
	for path, methods := range cfg.Methods {
		ms := append(slices.Clone(methods), http.MethodOptions)
		slices.Sort(ms)
		allowMethods[path] = strings.Join(slices.Compact(ms), ", ")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			methods, routed := allowMethods[r.URL.Path]
			origin := r.Header.Get("Origin")
			if origin != "" && routed && originAllowed(cfg.Origins, origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
				h.Set("Access-Control-Max-Age", "86400")
			}
			if r.Method == http.MethodOptions {
				if !routed {
					http.NotFound(w, r)
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
