package spotify

import (
	"fmt"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Run("401", func(t *testing.T) {
		t.Run("Token Expired", func(t *testing.T) {
			bodies := []string{
				`{"error":{"status":401,"message":"The access token expired"}}`,
				`{"error":{"status":401,"message":"Token expired"}}`,
				`{"error":{"status":401,"message":"ACCESS TOKEN EXPIRED"}}`,
			}
			for _, body := range bodies {
				got := Classify(401, []byte(body), "")
				if got.Kind != KindTokenExpired {
					t.Errorf("body %q: expected token_expired, got %s", body, got.Kind)
				}
			}
		})

		t.Run("Any Other Body Is Invalid Token", func(t *testing.T) {
			bodies := []string{
				`{"error":{"status":401,"message":"Invalid access token"}}`,
				`{"error":{"status":401,"message":"No token provided"}}`,
				``,
			}
			for _, body := range bodies {
				got := Classify(401, []byte(body), "")
				if got.Kind != KindInvalidToken {
					t.Errorf("body %q: expected invalid_token, got %s", body, got.Kind)
				}
			}
		})
	})

	t.Run("403", func(t *testing.T) {
		t.Run("Scope", func(t *testing.T) {
			got := Classify(403, []byte(`{"error":{"status":403,"message":"Insufficient client scope"}}`), "user-top-read")
			if got.Kind != KindInsufficientScope {
				t.Fatalf("expected insufficient_scope, got %s", got.Kind)
			}
			if got.Scope != "user-top-read" {
				t.Errorf("expected scope user-top-read, got %s", got.Scope)
			}
			if !strings.Contains(got.Message, "user-top-read") {
				t.Errorf("expected message to name the scope, got %q", got.Message)
			}
		})

		t.Run("Scope Without Context", func(t *testing.T) {
			got := Classify(403, []byte(`{"error":{"message":"missing scope"}}`), "")
			if got.Kind != KindInsufficientScope {
				t.Fatalf("expected insufficient_scope, got %s", got.Kind)
			}
			if got.Scope != "unknown" {
				t.Errorf("expected safe default scope, got %s", got.Scope)
			}
		})

		t.Run("Premium", func(t *testing.T) {
			for _, body := range []string{
				`{"error":{"status":403,"message":"Player command failed: Premium required","reason":"PREMIUM_REQUIRED"}}`,
				`{"error":{"message":"This feature needs an active subscription"}}`,
			} {
				got := Classify(403, []byte(body), "")
				if got.Kind != KindPremiumRequired {
					t.Errorf("body %q: expected premium_required, got %s", body, got.Kind)
				}
			}
		})

		t.Run("Otherwise Forbidden", func(t *testing.T) {
			got := Classify(403, []byte(`{"error":{"message":"Nope"}}`), "")
			if got.Kind != KindForbidden {
				t.Errorf("expected forbidden, got %s", got.Kind)
			}
		})
	})

	t.Run("402 Is Premium Required", func(t *testing.T) {
		got := Classify(402, []byte(`{"error":{"message":"Payment required"}}`), "")
		if got.Kind != KindPremiumRequired {
			t.Errorf("expected premium_required, got %s", got.Kind)
		}
	})

	t.Run("404", func(t *testing.T) {
		got := Classify(404, []byte(`{"error":{"status":404,"message":"Not found"}}`), "")
		if got.Kind != KindNotFound {
			t.Errorf("expected not_found, got %s", got.Kind)
		}
	})

	t.Run("429", func(t *testing.T) {
		t.Run("Defaults To 60", func(t *testing.T) {
			got := Classify(429, []byte(`{"error":{"status":429,"message":"Too many requests"}}`), "")
			if got.Kind != KindRateLimited {
				t.Fatalf("expected rate_limited, got %s", got.Kind)
			}
			if got.RetryAfter != 60 {
				t.Errorf("expected default retry after 60, got %d", got.RetryAfter)
			}
		})

		t.Run("Uses Body Value", func(t *testing.T) {
			for _, secs := range []int{0, 1, 30, 120, 3600} {
				body := fmt.Sprintf(`{"retry_after":%d,"error":{"status":429,"message":"Too many requests"}}`, secs)
				got := Classify(429, []byte(body), "")
				if got.RetryAfter != secs {
					t.Errorf("expected retry after %d, got %d", secs, got.RetryAfter)
				}
				if !strings.Contains(got.Message, fmt.Sprintf("%d seconds", secs)) {
					t.Errorf("expected message to mention %d seconds, got %q", secs, got.Message)
				}
			}
		})

		t.Run("Negative Body Value Falls Back To Default", func(t *testing.T) {
			got := Classify(429, []byte(`{"retry_after":-5,"error":{"status":429,"message":"Too many requests"}}`), "")
			if got.RetryAfter != 60 {
				t.Errorf("expected default retry after 60, got %d", got.RetryAfter)
			}
		})
	})

	t.Run("5xx", func(t *testing.T) {
		for _, status := range []int{500, 502, 503} {
			got := Classify(status, nil, "")
			if got.Kind != KindServerError {
				t.Errorf("status %d: expected upstream_server_error, got %s", status, got.Kind)
			}
			if got.StatusCode != status {
				t.Errorf("expected status %d preserved, got %d", status, got.StatusCode)
			}
		}
	})

	t.Run("Other Statuses Preserve Code", func(t *testing.T) {
		for _, status := range []int{400, 405, 410, 418, 501, 504} {
			got := Classify(status, nil, "")
			if got.Kind != KindAPIError {
				t.Errorf("status %d: expected upstream_api_error, got %s", status, got.Kind)
			}
			if got.StatusCode != status {
				t.Errorf("expected status %d preserved, got %d", status, got.StatusCode)
			}
		}
	})

	t.Run("Unparseable Body Is Parse Error", func(t *testing.T) {
		got := Classify(400, []byte("<html>bad gateway</html>"), "")
		if got.Kind != KindParseError {
			t.Errorf("expected parse_error, got %s", got.Kind)
		}
		if got.StatusCode != 400 {
			t.Errorf("expected status tagged on parse error, got %d", got.StatusCode)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		body := []byte(`{"error":{"status":403,"message":"Insufficient client scope"}}`)
		first := Classify(403, body, "user-top-read")
		for range 10 {
			again := Classify(403, body, "user-top-read")
			if again.Kind != first.Kind || again.Scope != first.Scope || again.Message != first.Message {
				t.Fatal("expected identical classification for identical inputs")
			}
		}
	})
}

func TestErrorHelpers(t *testing.T) {
	t.Run("IsKind", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", &Error{Kind: KindTokenExpired})
		if !IsKind(err, KindTokenExpired) {
			t.Error("expected IsKind to see through wrapping")
		}
		if IsKind(err, KindForbidden) {
			t.Error("expected kind mismatch to be false")
		}
		if IsKind(fmt.Errorf("plain"), KindUnknown) {
			t.Error("expected plain error not to match")
		}
	})

	t.Run("AuthFailure", func(t *testing.T) {
		for kind, want := range map[Kind]bool{
			KindNoAccessToken:     true,
			KindTokenExpired:      true,
			KindInvalidToken:      true,
			KindInsufficientScope: false,
			KindPremiumRequired:   false,
			KindRateLimited:       false,
			KindServerError:       false,
		} {
			if got := AuthFailure(&Error{Kind: kind}); got != want {
				t.Errorf("kind %s: expected %v, got %v", kind, want, got)
			}
		}
	})

	t.Run("AsError Wraps Foreign Errors", func(t *testing.T) {
		got := AsError(fmt.Errorf("dial tcp: connection refused"))
		if got.Kind != KindUnknown {
			t.Errorf("expected unknown, got %s", got.Kind)
		}

		typed := &Error{Kind: KindNotFound, StatusCode: 404}
		if AsError(typed) != typed {
			t.Error("expected typed error returned as-is")
		}
	})
}
