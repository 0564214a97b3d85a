package storage

import (
	"bytes"
	"context"
	"errors"
	"testing"

	inbox_errors "tenant-inbox/pkg/errors"
)

func TestCleanKey(t *testing.T) {
	valid := []string{
		"0195f3a2-0000-7000-8000-000000000001/attachment_ab12.png",
		"temp/user/lease.pdf",
		"a",
	}
	for _, key := range valid {
		if got, err := CleanKey(key); err != nil || got != key {
			t.Errorf("CleanKey(%q) = %q, %v", key, got, err)
		}
	}

	invalid := []string{
		"",
		"/etc/passwd",
		`\windows\system32`,
		"../secret",
		"a/../../b",
		"a/./b",
		"a//b",
		"a/",
		"a\\b",
		"a\x00b",
		".",
	}
	for _, key := range invalid {
		if _, err := CleanKey(key); !errors.Is(err, inbox_errors.ErrInvalidInput) {
			t.Errorf("CleanKey(%q) error = %v, want ErrInvalidInput", key, err)
		}
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	ctx := context.Background()
	data := []byte("%PDF-1.7 lease")

	if err := store.Put(ctx, "conv/attachment_1.pdf", data, "application/pdf"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := store.Get(ctx, "conv/attachment_1.pdf")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("Get() = %q, want %q", got, data)
	}

	if _, err := store.Get(ctx, "conv/attachment_2.pdf"); !errors.Is(err, inbox_errors.ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if err := store.Put(ctx, "../escape.txt", data, "text/plain"); !errors.Is(err, inbox_errors.ErrInvalidInput) {
		t.Fatalf("Put(escape) error = %v, want ErrInvalidInput", err)
	}

	if err := store.Delete(ctx, "conv/attachment_1.pdf"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "conv/attachment_1.pdf"); !errors.Is(err, inbox_errors.ErrNotFound) {
		t.Fatalf("Get(deleted) error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "conv/attachment_1.pdf"); err != nil {
		t.Fatalf("Delete(missing) error = %v", err)
	}
	if err := store.Delete(ctx, "../escape.txt"); !errors.Is(err, inbox_errors.ErrInvalidInput) {
		t.Fatalf("Delete(escape) error = %v, want ErrInvalidInput", err)
	}
}

func TestLocalStoreHonoursCancelledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Put(ctx, "k", []byte("x"), ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("Put() error = %v, want context.Canceled", err)
	}
}

func TestNewLocalStoreRequiresRoot(t *testing.T) {
	if _, err := NewLocalStore(""); err == nil {
		t.Fatal("expected an error for an empty root")
	}
}
