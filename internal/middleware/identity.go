package middleware

import "github.com/labstack/echo/v4"

// Subject returns the authenticated subject, or "" for anonymous requests.
func Subject(c echo.Context) string {
	s, _ := c.Get(CtxSubject).(string)
	return s
}

// Email returns the email claim of a staff token.
func Email(c echo.Context) string {
	s, _ := c.Get(CtxEmail).(string)
	return s
}

func subjectOrAnon(c echo.Context) string {
	if s := Subject(c); s != "" {
		return s
	}
	return "anon"
}
