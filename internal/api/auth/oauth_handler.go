package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"

	"github.com/FACorreiaa/go-shop-backend/config"
	"github.com/FACorreiaa/go-shop-backend/internal/api"
)

// SetupOAuthProviders registers the providers that have credentials configured and
// returns how many were enabled. With none, the OAuth routes answer 404.
func SetupOAuthProviders(cfg config.OAuthConfig, secure bool, logger *slog.Logger) int {
	var providers []goth.Provider
	if cfg.Github.ClientID != "" {
		providers = append(providers, github.New(cfg.Github.ClientID, cfg.Github.ClientSecret, cfg.Github.CallbackURL, "user:email"))
	}
	if cfg.Google.ClientID != "" {
		providers = append(providers, google.New(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.CallbackURL, "email", "profile"))
	}
	if len(providers) == 0 {
		logger.Info("No OAuth providers configured")
		return 0
	}

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.MaxAge(600)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	gothic.Store = store

	goth.UseProviders(providers...)
	logger.Info("OAuth providers enabled", slog.Int("count", len(providers)))
	return len(providers)
}

// BeginOAuth godoc
// @Summary      Start OAuth login
// @Tags         Auth
// @Param        provider path string true "github or google"
// @Success      307
// @Failure      404 {object} types.Response
// @Router       /auth/{provider} [get]
func (h *HandlerImpl) BeginOAuth(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if _, err := goth.GetProvider(provider); err != nil {
		api.ErrorResponse(w, r, http.StatusNotFound, "Unknown OAuth provider")
		return
	}
	gothic.BeginAuthHandler(w, gothic.GetContextWithProvider(r, provider))
}

// OAuthCallback godoc
// @Summary      OAuth callback
// @Description  Completes the provider flow, creating a local account on first login.
// @Tags         Auth
// @Produce      json
// @Param        provider path string true "github or google"
// @Success      200 {object} types.LoginResponse
// @Failure      401 {object} types.Response
// @Router       /auth/{provider}/callback [get]
func (h *HandlerImpl) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "OAuthCallback"))
	provider := chi.URLParam(r, "provider")
	if _, err := goth.GetProvider(provider); err != nil {
		api.ErrorResponse(w, r, http.StatusNotFound, "Unknown OAuth provider")
		return
	}

	r = gothic.GetContextWithProvider(r, provider)
	gothUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		l.WarnContext(r.Context(), "OAuth completion failed", slog.String("provider", provider), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "OAuth login failed")
		return
	}

	resp, err := h.authService.LoginWithProvider(r.Context(), gothUser)
	if err != nil {
		api.HandleError(w, r, l, err, "OAuth login failed")
		return
	}
	_ = gothic.Logout(w, r)
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}
