package horosafe

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	cases := []struct {
		url string
		ok  bool
	}{
		{"https://sfl.world/api/v1/prices", true},
		{"http://127.0.0.1:8080/dashboard", true},
		{"HTTPS://farm.example", true},
		{"file:///etc/passwd", false},
		{"javascript:alert(1)", false},
		{"https://", false},
		{"::not a url", false},
	}
	for _, c := range cases {
		err := ValidateURL(c.url)
		if (err == nil) != c.ok {
			t.Errorf("ValidateURL(%q) = %v, want ok=%v", c.url, err, c.ok)
		}
	}
	if !errors.Is(ValidateURL("ftp://x"), ErrUnsafeScheme) {
		t.Error("ftp should be an unsafe scheme")
	}
}

func TestLimitedReadAll(t *testing.T) {
	data, err := LimitedReadAll(strings.NewReader("hello"), 5)
	if err != nil || string(data) != "hello" {
		t.Fatalf("at limit: %q, %v", data, err)
	}
	if _, err := LimitedReadAll(strings.NewReader("hello!"), 5); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("over limit: %v", err)
	}
}
