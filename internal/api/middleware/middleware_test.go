package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/limaJavier/smartclassroom/internal/domain"
	"github.com/limaJavier/smartclassroom/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

//** Fake user service resolving a fixed set of sessions

type fakeUsers struct {
	service.UserService
	sessions map[string]domain.User
	expired  map[string]bool
}

func (f *fakeUsers) Session(_ context.Context, id string) (domain.Session, domain.User, error) {
	if f.expired[id] {
		return domain.Session{}, domain.User{}, service.ErrSessionExpired
	}
	user, ok := f.sessions[id]
	if !ok {
		return domain.Session{}, domain.User{}, service.ErrSessionNotFound
	}
	return domain.Session{Id: id, UserId: user.Id, ExpiresAt: time.Now().Add(time.Hour)}, user, nil
}

func newSessionEngine() *gin.Engine {
	users := &fakeUsers{
		sessions: map[string]domain.User{
			"s-teacher": {Id: "u1", Username: "tjones", Type: domain.RoleTeacher},
			"s-student": {Id: "u2", Username: "sara", Type: domain.RoleStudent},
		},
		expired: map[string]bool{"s-old": true},
	}

	r := gin.New()
	r.Use(SessionAuth(users, zap.NewNop()))
	r.GET("/me", func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.String(http.StatusOK, user.Username+" "+CurrentSessionId(c))
	})
	r.GET("/teachers", RequireRole(domain.RoleTeacher), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func get(r *gin.Engine, path, session string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSessionAuth(t *testing.T) {
	g := NewWithT(t)
	r := newSessionEngine()

	rec := get(r, "/me", "s-teacher")
	g.Expect(rec.Code).To(Equal(http.StatusOK))
	g.Expect(rec.Body.String()).To(Equal("tjones s-teacher"))

	rec = get(r, "/me", "")
	g.Expect(rec.Code).To(Equal(http.StatusUnauthorized))

	rec = get(r, "/me", "s-unknown")
	g.Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	g.Expect(rec.Body.String()).To(ContainSubstring("invalid session"))

	rec = get(r, "/me", "s-old")
	g.Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	g.Expect(rec.Body.String()).To(ContainSubstring("expired"))
}

func TestRequireRole(t *testing.T) {
	g := NewWithT(t)
	r := newSessionEngine()

	g.Expect(get(r, "/teachers", "s-teacher").Code).To(Equal(http.StatusOK))
	g.Expect(get(r, "/teachers", "s-student").Code).To(Equal(http.StatusForbidden))
}

func TestRequireRoleWithoutSession(t *testing.T) {
	g := NewWithT(t)
	r := gin.New()
	r.GET("/", RequireRole(domain.RoleStudent), func(c *gin.Context) { c.Status(http.StatusOK) })

	g.Expect(get(r, "/", "").Code).To(Equal(http.StatusUnauthorized))
}

func TestTrace(t *testing.T) {
	g := NewWithT(t)
	r := gin.New()
	r.Use(Trace())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, TraceId(c)) })

	rec := get(r, "/", "")
	generated := rec.Header().Get(TraceHeader)
	g.Expect(generated).To(HaveLen(36))
	g.Expect(rec.Body.String()).To(Equal(generated))

	cases := []struct {
		id   string
		kept bool
	}{
		{"trace-42", true},
		{strings.Repeat("x", maxTraceLength), true},
		{strings.Repeat("x", maxTraceLength+1), false},
		{"two words", false},
		{"caf\u00e9", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TraceHeader, tc.id)
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if tc.kept {
			g.Expect(rec.Header().Get(TraceHeader)).To(Equal(tc.id))
		} else {
			g.Expect(rec.Header().Get(TraceHeader)).To(HaveLen(36), tc.id)
		}
	}
}

func TestCORS(t *testing.T) {
	g := NewWithT(t)
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	g.Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://localhost:5173"))
	g.Expect(rec.Header().Get("Access-Control-Expose-Headers")).To(Equal(TraceHeader))
	g.Expect(rec.Header().Values("Vary")).To(ContainElement("Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	g.Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())

	// Preflight is answered without reaching the route
	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	g.Expect(rec.Code).To(Equal(http.StatusNoContent))
	g.Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://localhost:5173"))
	g.Expect(rec.Header().Get("Access-Control-Allow-Headers")).To(Equal("Content-Type, X-Session-ID, X-Request-ID"))
	g.Expect(rec.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring(http.MethodDelete))
}

func TestOriginPolicy(t *testing.T) {
	g := NewWithT(t)

	open := newOriginPolicy([]string{"https://school.test", "*"})
	g.Expect(open.allowOrigin("http://elsewhere.test")).To(Equal("*"))

	listed := newOriginPolicy([]string{" https://School.test/ "})
	g.Expect(listed.allowOrigin("https://school.test")).To(Equal("https://school.test"))
	g.Expect(listed.allowOrigin("https://school.test.evil")).To(BeEmpty())
	g.Expect(listed.allowOrigin("")).To(BeEmpty())
}

func TestBodyLimit(t *testing.T) {
	g := NewWithT(t)
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("short"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	g.Expect(rec.Code).To(Equal(http.StatusOK))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("far too long"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	g.Expect(rec.Code).To(Equal(http.StatusRequestEntityTooLarge))

	// Unknown length is caught while reading
	req = httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader("far too long")))
	req.ContentLength = -1
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	g.Expect(rec.Code).To(Equal(http.StatusRequestEntityTooLarge))

	g.Expect(IsBodyTooLarge(errors.New("other"))).To(BeFalse())
}

func TestAccessLog(t *testing.T) {
	g := NewWithT(t)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(Trace(), AccessLog(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "fine") })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("store offline"))
		c.Status(http.StatusInternalServerError)
	})

	traces := make([]string, 0, 4)
	for _, path := range []string{"/ok?page=2", "/bad", "/boom", "/missing"} {
		traces = append(traces, get(r, path, "").Header().Get(TraceHeader))
	}

	entries := logs.FilterMessage("http request").All()
	g.Expect(entries).To(HaveLen(4))

	first := entries[0].ContextMap()
	g.Expect(entries[0].Level).To(Equal(zapcore.InfoLevel))
	g.Expect(first).To(HaveKeyWithValue("route", "/ok"))
	g.Expect(first).To(HaveKeyWithValue("uri", "/ok?page=2"))
	g.Expect(first).To(HaveKeyWithValue("bytes", int64(4)))
	g.Expect(first).To(HaveKeyWithValue("trace_id", traces[0]))
	g.Expect(first).NotTo(HaveKey("user"))

	g.Expect(entries[1].Level).To(Equal(zapcore.WarnLevel))
	g.Expect(entries[2].Level).To(Equal(zapcore.ErrorLevel))
	g.Expect(entries[2].ContextMap()).To(HaveKeyWithValue("errors", []any{"store offline"}))
	g.Expect(entries[3].Level).To(Equal(zapcore.WarnLevel))
	g.Expect(entries[3].ContextMap()).To(HaveKeyWithValue("route", "unmatched"))
}

func TestAccessLogNamesUser(t *testing.T) {
	g := NewWithT(t)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(AccessLog(zap.New(core)))
	r.GET("/me", func(c *gin.Context) {
		c.Set(userKey, domain.User{Username: "tjones"})
		c.Status(http.StatusOK)
	})
	get(r, "/me", "")

	g.Expect(logs.All()).To(HaveLen(1))
	g.Expect(logs.All()[0].ContextMap()).To(HaveKeyWithValue("user", "tjones"))
}

func TestAccessLevel(t *testing.T) {
	g := NewWithT(t)

	g.Expect(accessLevel(http.StatusNoContent)).To(Equal(zapcore.InfoLevel))
	g.Expect(accessLevel(http.StatusFound)).To(Equal(zapcore.InfoLevel))
	g.Expect(accessLevel(http.StatusRequestEntityTooLarge)).To(Equal(zapcore.WarnLevel))
	g.Expect(accessLevel(http.StatusBadGateway)).To(Equal(zapcore.ErrorLevel))
}
