package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"korgan-irp/core/auth"
	"korgan-irp/core/rbac"
	"korgan-irp/core/store"
)

func testPolicy(t *testing.T) *rbac.Policy {
	t.Helper()
	p, err := rbac.NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	return p
}

func sessionRequest(r *http.Request, role string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), auth.SessionContextKey, &store.SessionRecord{
		Username: "insp",
		Role:     role,
	}))
}

func TestRequirePermissionDeniesMissingPermission(t *testing.T) {
	s := &Server{policy: testPolicy(t)}
	handler := s.requirePermission(rbac.PermReportsRollup)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/reports/aggregate", nil)
	req = sessionRequest(req, rbac.RoleDistrict)
	rr := httptest.NewRecorder()
	handler(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected forbidden, got %d", rr.Code)
	}
}

func TestRequirePermissionPassesHeldPermission(t *testing.T) {
	s := &Server{policy: testPolicy(t)}
	handler := s.requirePermission(rbac.PermReportsRollup)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/reports/aggregate", nil)
	req = sessionRequest(req, rbac.RoleDCHS)
	rr := httptest.NewRecorder()
	handler(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected ok, got %d", rr.Code)
	}
}

func TestRequirePermissionWithoutSession(t *testing.T) {
	s := &Server{policy: testPolicy(t)}
	handler := s.requirePermission(rbac.PermReportsView)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rr := httptest.NewRecorder()
	handler(rr, httptest.NewRequest(http.MethodGet, "/api/reports/aggregate", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized, got %d", rr.Code)
	}
}

func TestSessionIDPrefersCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "cookie-id"})
	req.Header.Set("Authorization", "Bearer token-id")
	if got := sessionID(req); got != "cookie-id" {
		t.Fatalf("got %q", got)
	}
}

func TestSessionIDBearerFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer token-id")
	if got := sessionID(req); got != "token-id" {
		t.Fatalf("got %q", got)
	}
	if got := sessionID(httptest.NewRequest(http.MethodGet, "/", nil)); got != "" {
		t.Fatalf("no credentials must read empty, got %q", got)
	}
}

func TestSessionActivityThrottle(t *testing.T) {
	sa := newSessionActivity()
	now := time.Now()
	if !sa.shouldUpdate("s1", now, 30*time.Second) {
		t.Fatal("first touch must update")
	}
	if sa.shouldUpdate("s1", now.Add(5*time.Second), 30*time.Second) {
		t.Fatal("second touch inside the interval must not")
	}
	if !sa.shouldUpdate("s1", now.Add(31*time.Second), 30*time.Second) {
		t.Fatal("touch after the interval must update")
	}
	if !sa.shouldUpdate("s2", now, 30*time.Second) {
		t.Fatal("other sessions track independently")
	}
}

func TestRequestLimiterExhaustsAndRefills(t *testing.T) {
	l := newLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !l.allow("10.0.0.1") {
			t.Fatalf("attempt %d within capacity must pass", i+1)
		}
	}
	if l.allow("10.0.0.1") {
		t.Fatal("attempt over capacity must be rejected")
	}
	if !l.allow("10.0.0.2") {
		t.Fatal("other clients keep their own bucket")
	}
	l.buckets["10.0.0.1"].last = time.Now().Add(-2 * time.Minute)
	if !l.allow("10.0.0.1") {
		t.Fatal("bucket must refill after the window")
	}
}

func TestRequestLimiterCapsBucketCount(t *testing.T) {
	l := newLimiter(1, time.Minute)
	l.maxBuckets = 3
	for i := 0; i < 3; i++ {
		if !l.allow(fmt.Sprintf("10.0.0.%d", i)) {
			t.Fatalf("bucket %d must fit", i)
		}
	}
	if l.allow("10.0.0.99") {
		t.Fatal("new clients past the cap are shed")
	}
}
