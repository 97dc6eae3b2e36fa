// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"embed"
	"html/template"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/holomush/gatehouse/internal/auth"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names.
const (
	pageRegister  = "register"
	pageLogin     = "login"
	pageDashboard = "dashboard"
	pageError     = "error"
)

// Flash categories.
const (
	flashSuccess = "success"
	flashDanger  = "danger"
)

// pages pairs the shared layout with each page's content block.
var pages = func() map[string]*template.Template {
	out := make(map[string]*template.Template)
	for _, name := range []string{pageRegister, pageLogin, pageDashboard, pageError} {
		out[name] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return out
}()

type flash struct {
	Category string
	Message  string
}

type pageData struct {
	Title   string
	Flashes []flash
	User    *auth.Profile
	// Name and Email repopulate a failed form. The password never does.
	Name  string
	Email string
}

func (s *server) render(c *gin.Context, status int, page string, data pageData) {
	if data.Title == "" {
		data.Title = page
	}
	data.Flashes = append(s.takeFlashes(c), data.Flashes...)
	c.Render(status, render.HTML{Template: pages[page], Name: "layout", Data: data})
}

// takeFlashes pops pending flash messages from the cookie session.
func (s *server) takeFlashes(c *gin.Context) []flash {
	session := sessions.Default(c)
	var out []flash
	for _, category := range []string{flashSuccess, flashDanger} {
		for _, v := range session.Flashes(category) {
			if msg, ok := v.(string); ok {
				out = append(out, flash{Category: category, Message: msg})
			}
		}
	}
	if len(out) > 0 {
		s.saveSession(c, session)
	}
	return out
}
