// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/pkg/errutil"
)

// profileKey is the gin context key set by RequireSession.
const profileKey = "gatehouse.profile"

// ProfileFrom returns the profile RequireSession attached to c.
func ProfileFrom(c *gin.Context) (auth.Profile, bool) {
	v, ok := c.Get(profileKey)
	if !ok {
		return auth.Profile{}, false
	}
	p, ok := v.(auth.Profile)
	return p, ok
}

// RequireSession resolves the session token in the cookie and loads the
// user's profile. Requests without a valid session, or whose user no longer
// exists, have the token dropped from the cookie and are sent to /login.
func RequireSession(svc Authenticator, sessionManager auth.SessionManager, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(sessionTokenKey).(string)
		if token == "" {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}

		email, err := sessionManager.Resolve(c.Request.Context(), token)
		if err == nil {
			var profile auth.Profile
			profile, err = svc.Profile(c.Request.Context(), email)
			if err == nil {
				c.Set(profileKey, profile)
				c.Next()
				return
			}
		}

		if errors.Is(err, auth.ErrSessionInvalid) || errors.Is(err, auth.ErrNotFound) {
			session.Delete(sessionTokenKey)
			if saveErr := session.Save(); saveErr != nil {
				errutil.LogError(logger, "session cookie not saved", saveErr)
			}
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}

		errutil.LogError(logger, "session check failed", err)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}

// requestLogger logs one line per request and reports it to metrics.
func requestLogger(logger *slog.Logger, metrics HTTPObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		route := c.FullPath()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.LogAttrs(c.Request.Context(), level, "http request",
			slog.String("method", c.Request.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("duration", elapsed),
			slog.String("client_ip", c.ClientIP()),
		)
		if metrics != nil {
			metrics.ObserveHTTP(c.Request.Method, route, status, elapsed)
		}
	}
}

func (s *server) recovered(c *gin.Context, recovered any) {
	s.logger.ErrorContext(c.Request.Context(), "panic serving request",
		"route", c.FullPath(),
		"panic", recovered,
	)
	c.AbortWithStatus(http.StatusInternalServerError)
}
