package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/sorteos/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestReadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager(ConfigFrom(config.Config{}))

	tests := []struct {
		name   string
		cookie string
		header string
		want   string
		ok     bool
	}{
		{name: "cookie", cookie: "abc", want: "abc", ok: true},
		{name: "bearer", header: "Bearer xyz", want: "xyz", ok: true},
		{name: "cookie wins", cookie: "abc", header: "Bearer xyz", want: "abc", ok: true},
		{name: "basic", header: "Basic xyz"},
		{name: "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			c.Request = req

			got, ok := m.ReadToken(c)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestManagerUsesConfiguredCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager(ConfigFrom(config.Config{AuthCookieName: " sorteos_admin ", AuthCookieSecure: true}))
	assert.Equal(t, "sorteos_admin", m.CookieName())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	m.Set(c, "tok", time.Now().Add(time.Hour))

	cookies := rec.Result().Cookies()
	if assert.Len(t, cookies, 1) {
		assert.Equal(t, "sorteos_admin", cookies[0].Name)
		assert.Equal(t, "tok", cookies[0].Value)
		assert.True(t, cookies[0].Secure)
		assert.True(t, cookies[0].HttpOnly)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "stale"})
	c.Request = req
	_, ok := m.ReadToken(c)
	assert.False(t, ok)
}
