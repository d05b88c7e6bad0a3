package i18n

import "net/http"

// Middleware picks the localizer from the request's Accept-Language header,
// falling back to lang, and stores it in the request context.
func Middleware(lang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			langs := []string{lang}
			if accept := r.Header.Get("Accept-Language"); accept != "" {
				langs = []string{accept, lang}
			}
			if q := r.URL.Query().Get("lang"); q != "" {
				langs = append([]string{q}, langs...)
			}
			ctx := WithLanguage(r.Context(), langs...)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
