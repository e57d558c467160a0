package web

import (
	"context"
	"net/http"

	"github.com/starford/sever/internal/models"
)

// ThemeCookie stores the reader's light/dark preference.
const ThemeCookie = "knowledgewiki_theme"

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Prefs are per-request display preferences.
type Prefs struct {
	Theme  string
	Locale string
}

type prefsKey struct{}

// PrefsMiddleware resolves the theme from ThemeCookie and the display locale
// from the "lang" query parameter, and stores them in the request context.
func PrefsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := Prefs{Theme: ThemeLight, Locale: models.LocaleZhCN}
		if c, err := r.Cookie(ThemeCookie); err == nil && c.Value == ThemeDark {
			p.Theme = ThemeDark
		}
		if r.URL.Query().Get("lang") == models.LocaleEnUS {
			p.Locale = models.LocaleEnUS
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), prefsKey{}, p)))
	})
}

// PrefsFrom returns the preferences stored by PrefsMiddleware, or defaults.
func PrefsFrom(ctx context.Context) Prefs {
	if p, ok := ctx.Value(prefsKey{}).(Prefs); ok {
		return p
	}
	return Prefs{Theme: ThemeLight, Locale: models.LocaleZhCN}
}
