package i18n

import "net/http"

// LangCookie remembers a language chosen with ?lang=.
const LangCookie = "lang"

// Middleware injects a localizer into every request context. The language
// comes from ?lang=, then the lang cookie, then Accept-Language, falling
// back to the Init language.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var cookie string
		if c, err := r.Cookie(LangCookie); err == nil {
			cookie = c.Value
		}
		query := r.URL.Query().Get("lang")
		lang := Match(query, cookie, r.Header.Get("Accept-Language"))
		if query != "" {
			http.SetCookie(w, &http.Cookie{Name: LangCookie, Value: lang, Path: "/", SameSite: http.SameSiteLaxMode})
		}
		next.ServeHTTP(w, r.WithContext(Context(r.Context(), lang)))
	})
}
