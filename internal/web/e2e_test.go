// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

var _ = Describe("A visitor", func() {
	for _, mode := range []struct {
		name   string
		signed bool
	}{
		{"opaque sessions", false},
		{"signed sessions", true},
	} {
		Context("with "+mode.name, func() {
			var (
				a *app
				b *browser
			)

			BeforeEach(func() {
				a = newApp(GinkgoT(), appConfig{signed: mode.signed})
				b = a.browser(GinkgoT())
			})

			It("registers, logs in, sees the dashboard and logs out", func() {
				By("registering Ann")
				resp := b.post("/register", registerForm("Ann", "ann@x.com", "secret1"))
				Expect(resp.status).To(Equal(http.StatusSeeOther))
				Expect(resp.location).To(Equal("/login"))
				Expect(b.get("/login").body).To(ContainSubstring("Registration successful! Please login."))

				By("logging in")
				resp = b.post("/login", loginForm("ann@x.com", "secret1"))
				Expect(resp.status).To(Equal(http.StatusSeeOther))
				Expect(resp.location).To(Equal("/dashboard"))

				By("viewing the dashboard")
				resp = b.get("/dashboard")
				Expect(resp.status).To(Equal(http.StatusOK))
				Expect(resp.body).To(And(ContainSubstring("Ann"), ContainSubstring("ann@x.com")))

				By("logging out")
				resp = b.get("/logout")
				Expect(resp.status).To(Equal(http.StatusSeeOther))
				Expect(resp.location).To(Equal("/login"))
				Expect(a.sessions.Len()).To(BeZero())

				By("being sent back to the login page")
				resp = b.get("/dashboard")
				Expect(resp.status).To(Equal(http.StatusSeeOther))
				Expect(resp.location).To(Equal("/login"))
			})

			It("cannot register the same email twice", func() {
				Expect(b.post("/register", registerForm("Ann", "ann@x.com", "secret1")).status).To(Equal(http.StatusSeeOther))

				resp := b.post("/register", registerForm("Ann Again", "ann@x.com", "another1"))
				Expect(resp.status).To(Equal(http.StatusConflict))
				Expect(resp.body).To(ContainSubstring("Email already registered!"))
				Expect(a.users.Len()).To(Equal(1))
			})

			It("is not told whether an email exists", func() {
				Expect(b.post("/register", registerForm("Ann", "ann@x.com", "secret1")).status).To(Equal(http.StatusSeeOther))

				wrong := b.post("/login", loginForm("ann@x.com", "nope-nope"))
				unknown := b.post("/login", loginForm("bob@x.com", "nope-nope"))
				Expect(wrong.status).To(Equal(unknown.status))
				Expect(wrong.body).To(ContainSubstring("Invalid email or password!"))
				Expect(unknown.body).To(ContainSubstring("Invalid email or password!"))
			})
		})
	}
})
