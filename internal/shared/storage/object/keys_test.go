package object

import (
	"errors"
	"strings"
	"testing"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/file.pdf", want: "user/file.pdf"},
		{name: "simple prefix", prefix: "root", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix trailing slash", prefix: "root/", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/user/file.pdf", want: "root/user/file.pdf"},
		{name: "nested prefix", prefix: "root/sub", key: "user/file.pdf", want: "root/sub/user/file.pdf"},
		{name: "empty key", prefix: "root", key: "", want: "root"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ApplyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("ApplyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestNewOwnerKey(t *testing.T) {
	key, err := NewOwnerKey("user-1", "lipid panel.pdf")
	if err != nil {
		t.Fatalf("NewOwnerKey: %v", err)
	}
	parts := strings.Split(key, "/")
	if len(parts) != 2 {
		t.Fatalf("expected owner/name key, got %q", key)
	}
	if len(parts[0]) != 64 {
		t.Fatalf("expected hashed owner segment, got %q", parts[0])
	}
	if !strings.HasSuffix(parts[1], "_lipid panel.pdf") {
		t.Fatalf("expected file name suffix, got %q", parts[1])
	}
	if _, err := NewOwnerKey("user-1", "../x"); err == nil {
		t.Fatalf("expected traversal name to be rejected")
	}
}

func TestSanitizeFileName(t *testing.T) {
	t.Parallel()

	got, err := SanitizeFileName("  scans/2024\\cbc.pdf ")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if got != "scans_2024_cbc.pdf" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
	for _, bad := range []string{"", "   ", "../etc/passwd"} {
		if _, err := SanitizeFileName(bad); !errors.Is(err, ErrInvalidFileName) {
			t.Fatalf("SanitizeFileName(%q) err = %v, want ErrInvalidFileName", bad, err)
		}
	}
}

func TestOwnerSegmentIsStableHex(t *testing.T) {
	t.Parallel()

	a := OwnerSegment("user-1")
	if a != OwnerSegment("user-1") || a == OwnerSegment("user-2") {
		t.Fatalf("owner segment not stable per owner")
	}
	if len(a) != 64 || strings.Trim(a, "0123456789abcdef") != "" {
		t.Fatalf("owner segment is not a sha256 hex digest: %q", a)
	}
}
