package objectstore

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestLocalPutGet(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx := context.Background()
	if err := store.Put(ctx, "sessions/1001/final_document.json", []byte(`{"ok":true}`), "application/json"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := store.Get(ctx, "/sessions/1001/final_document.json")
	if err != nil || string(got) != `{"ok":true}` {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if _, err := store.Get(ctx, "sessions/1001/missing.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
	if loc := store.Location("sessions/1001/final_document.json"); !strings.HasPrefix(loc, "file://") {
		t.Fatalf("Location = %q", loc)
	}
}

func TestCleanKeyRejectsEscapes(t *testing.T) {
	for _, key := range []string{"", "  ", "../etc/passwd", "a/../../b"} {
		if _, err := cleanKey(key); err == nil {
			t.Fatalf("cleanKey(%q) should fail", key)
		}
	}
	if k, err := cleanKey("a//b/./c"); err != nil || k != "a/b/c" {
		t.Fatalf("cleanKey = %q, %v", k, err)
	}
}

func TestNewS3Validates(t *testing.T) {
	if _, err := NewS3(S3Config{Endpoint: "localhost:9000", Bucket: "b"}); err == nil {
		t.Fatalf("missing credentials should fail")
	}
	s, err := NewS3(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "archive", Prefix: "/docfill/"})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	if loc := s.Location("sessions/1001/x.json"); loc != "s3://archive/docfill/sessions/1001/x.json" {
		t.Fatalf("Location = %q", loc)
	}
}
