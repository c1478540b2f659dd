package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileKV_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state", "console.json")

	kv1, err := OpenFile(path, nil)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if err := kv1.Set(UserKey, []byte(`{"id":"1234","token":"U"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected state file written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected state file mode 0600, got %o", info.Mode().Perm())
	}

	kv2, err := OpenFile(path, nil)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	got, ok, err := kv2.Get(UserKey)
	if err != nil || !ok {
		t.Fatalf("expected key present, ok=%v err=%v", ok, err)
	}
	if string(got) != `{"id":"1234","token":"U"}` {
		t.Fatalf("unexpected value: %s", got)
	}
}

func TestFileKV_RemovePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.json")

	kv1, err := OpenFile(path, nil)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	_ = kv1.Set(AccountKey, []byte(`{"id":"4321"}`))
	_ = kv1.Set(UserKey, []byte(`{"id":"1234"}`))
	if err := kv1.Remove(AccountKey); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	kv2, err := OpenFile(path, nil)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, ok, _ := kv2.Get(AccountKey); ok {
		t.Fatalf("expected account key removed")
	}
	if _, ok, _ := kv2.Get(UserKey); !ok {
		t.Fatalf("expected user key kept")
	}
}

func TestFileKV_RejectsInvalidJSON(t *testing.T) {
	kv, err := OpenFile(filepath.Join(t.TempDir(), "console.json"), nil)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if err := kv.Set(UserKey, []byte("{")); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

func TestFileKV_UnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.json")
	if err := os.WriteFile(path, []byte(`{"version":2,"values":{}}`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := OpenFile(path, nil); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	value := []byte(`{"a":1}`)
	_ = kv.Set("k", value)
	value[0] = 'x'

	got, ok, _ := kv.Get("k")
	if !ok || string(got) != `{"a":1}` {
		t.Fatalf("expected stored copy, got %q ok=%v", got, ok)
	}
	_ = kv.Remove("k")
	if _, ok, _ := kv.Get("k"); ok {
		t.Fatalf("expected key removed")
	}
}
