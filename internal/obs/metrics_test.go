package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                       "/",
		"/metrics":               "/metrics",
		"/healthz":               "/healthz",
		"/v1/auth/login":         "/v1/auth/login",
		"/v1/auth/login?next=x":  "/v1/auth/login",
		"/v1/user/profile":       "/v1/user/profile",
		"/v1/user/profile/extra": "/other",
		"/v1/accounts/01HXYZ":    "/other",
		"/favicon.ico":           "/other",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
