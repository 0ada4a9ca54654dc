package errs

import "testing"

func TestRedactSecretKeys(t *testing.T) {
	in := map[string]string{
		"auth_token":    "abc123",
		"OpenAI_Secret": "xyz",
		"password":      "hunter2",
		"api_key":       "sk-live-1",
		"Authorization": "Bearer abc",
		"region":        "us-east-1",
	}
	out := Redact(in)
	for _, k := range []string{"auth_token", "OpenAI_Secret", "password", "api_key", "Authorization"} {
		if out[k] != "[REDACTED]" {
			t.Errorf("key %q: expected [REDACTED], got %q", k, out[k])
		}
	}
	if out["region"] != "us-east-1" {
		t.Errorf("region should pass through unredacted, got %q", out["region"])
	}
}

func TestRedactContentLikeKeys(t *testing.T) {
	out := Redact(map[string]string{"query": "find main function", "content": "fn main() {}"})
	if out["query"] != "[REDACTED,len=18]" {
		t.Errorf("got %q", out["query"])
	}
	if out["content"] != "[REDACTED,len=12]" {
		t.Errorf("got %q", out["content"])
	}
}

func TestRedactNilMap(t *testing.T) {
	if Redact(nil) != nil {
		t.Error("expected nil passthrough")
	}
}
