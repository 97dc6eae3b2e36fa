// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web serves the registration, login and dashboard pages.
//
// The browser holds a signed cookie session whose "email" key carries the
// token issued by an auth.SessionManager. The cookie only authenticates the
// token; whether the session is still valid is decided server side.
package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/holomush/gatehouse/internal/auth"
)

// sessionTokenKey is the cookie session key holding the session token.
const sessionTokenKey = "email"

// DefaultCookieName names the session cookie when Options leaves it empty.
const DefaultCookieName = "gatehouse_session"

// Authenticator is the account service the handlers drive.
type Authenticator interface {
	Register(ctx context.Context, name, email, password string) (auth.Profile, error)
	Login(ctx context.Context, email, password string) (auth.Profile, error)
	Profile(ctx context.Context, email string) (auth.Profile, error)
}

// HTTPObserver records completed requests.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// Options configures the web handler.
type Options struct {
	// CookieSecret signs the session cookie.
	CookieSecret []byte
	CookieName   string
	SecureCookie bool
}

type server struct {
	svc      Authenticator
	sessions auth.SessionManager
	logger   *slog.Logger
}

// New builds the gin engine. metrics may be nil.
func New(opts Options, svc Authenticator, sessionManager auth.SessionManager, logger *slog.Logger, metrics HTTPObserver) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	s := &server{svc: svc, sessions: sessionManager, logger: logger}

	store := cookie.NewStore(opts.CookieSecret)
	// Sessions end at logout only. securecookie otherwise rejects cookies
	// older than 30 days.
	if aged, ok := store.(interface{ MaxAge(age int) }); ok {
		aged.MaxAge(0)
	}
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	router := gin.New()
	router.Use(
		requestLogger(logger, metrics),
		gin.CustomRecoveryWithWriter(io.Discard, s.recovered),
		sessions.Sessions(opts.CookieName, store),
	)

	router.GET("/", func(c *gin.Context) { c.Redirect(http.StatusSeeOther, "/login") })
	router.GET("/register", s.registerForm)
	router.POST("/register", s.register)
	router.GET("/login", s.loginForm)
	router.POST("/login", s.login)
	router.GET("/dashboard", RequireSession(svc, sessionManager, logger), s.dashboard)
	router.GET("/logout", s.logout)

	return router
}
