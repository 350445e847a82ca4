package s3

import (
	"io"
	"strings"
	"testing"
)

func TestCountingReader(t *testing.T) {
	c := &countingReader{r: strings.NewReader("Creatinine 1.0 mg/dL")}
	if _, err := io.Copy(io.Discard, c); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if c.n != 20 {
		t.Fatalf("expected 20 bytes counted, got %d", c.n)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(t.Context(), "us-east-1", "", "", ""); err == nil {
		t.Fatalf("expected error for empty bucket")
	}
}
