// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/pkg/errutil"
)

// User-facing messages.
const (
	msgRegistered         = "Registration successful! Please login."
	msgMissingField       = "All fields are required!"
	msgPasswordTooShort   = "Password must be at least 6 characters long!"
	msgAlreadyRegistered  = "Email already registered!"
	msgInvalidCredentials = "Invalid email or password!"
	msgLoggedOut          = "Logged out successfully!"
	msgInternal           = "Something went wrong. Please try again."
)

// failure maps a service error to a status code and a message for the form.
func failure(err error) (int, string) {
	if field, ok := auth.ValidationField(err); ok {
		if field == auth.FieldPasswordTooShort {
			return http.StatusBadRequest, msgPasswordTooShort
		}
		return http.StatusBadRequest, msgMissingField
	}
	switch {
	case errors.Is(err, auth.ErrAlreadyExists):
		return http.StatusConflict, msgAlreadyRegistered
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func (s *server) registerForm(c *gin.Context) {
	s.render(c, http.StatusOK, pageRegister, pageData{Title: "Register"})
}

func (s *server) register(c *gin.Context) {
	name, email := c.PostForm("name"), c.PostForm("email")

	_, err := s.svc.Register(c.Request.Context(), name, email, c.PostForm("password"))
	if err != nil {
		status, msg := failure(err)
		if status == http.StatusInternalServerError {
			errutil.LogError(s.logger, "registration failed", err)
		}
		s.render(c, status, pageRegister, pageData{
			Title:   "Register",
			Flashes: []flash{{Category: flashDanger, Message: msg}},
			Name:    name,
			Email:   email,
		})
		return
	}

	session := sessions.Default(c)
	session.AddFlash(msgRegistered, flashSuccess)
	s.saveSession(c, session)
	c.Redirect(http.StatusSeeOther, "/login")
}

func (s *server) loginForm(c *gin.Context) {
	s.render(c, http.StatusOK, pageLogin, pageData{Title: "Login"})
}

func (s *server) login(c *gin.Context) {
	ctx := c.Request.Context()
	email := c.PostForm("email")

	profile, err := s.svc.Login(ctx, email, c.PostForm("password"))
	if err != nil {
		status, msg := failure(err)
		if status == http.StatusInternalServerError {
			errutil.LogError(s.logger, "login failed", err)
		}
		s.render(c, status, pageLogin, pageData{
			Title:   "Login",
			Flashes: []flash{{Category: flashDanger, Message: msg}},
			Email:   email,
		})
		return
	}

	session := sessions.Default(c)
	// Retire any token the browser already carried.
	if old, ok := session.Get(sessionTokenKey).(string); ok && old != "" {
		if err := s.sessions.Revoke(ctx, old); err != nil {
			errutil.LogError(s.logger, "previous session not revoked", err)
		}
	}

	token, err := s.sessions.Issue(ctx, profile.Email)
	if err != nil {
		errutil.LogError(s.logger, "session issue failed", err, "user_id", profile.ID.String())
		s.renderError(c)
		return
	}

	session.Set(sessionTokenKey, token)
	if !s.saveSession(c, session) {
		s.renderError(c)
		return
	}
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (s *server) dashboard(c *gin.Context) {
	profile, ok := ProfileFrom(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}
	s.render(c, http.StatusOK, pageDashboard, pageData{Title: "Dashboard", User: &profile})
}

func (s *server) logout(c *gin.Context) {
	session := sessions.Default(c)
	if token, ok := session.Get(sessionTokenKey).(string); ok && token != "" {
		if err := s.sessions.Revoke(c.Request.Context(), token); err != nil {
			errutil.LogError(s.logger, "session revoke failed", err)
			s.renderError(c)
			return
		}
	}

	session.Clear()
	session.AddFlash(msgLoggedOut, flashSuccess)
	s.saveSession(c, session)
	c.Redirect(http.StatusSeeOther, "/login")
}

func (s *server) renderError(c *gin.Context) {
	s.render(c, http.StatusInternalServerError, pageError, pageData{
		Title:   "Error",
		Flashes: []flash{{Category: flashDanger, Message: msgInternal}},
	})
}

// saveSession writes the cookie session and reports whether it succeeded.
func (s *server) saveSession(c *gin.Context, session sessions.Session) bool {
	if err := session.Save(); err != nil {
		errutil.LogError(s.logger, "session cookie not saved", err)
		return false
	}
	return true
}
