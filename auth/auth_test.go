package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFilePathUsesXDGDataHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	want := filepath.Join(tmp, "translaitor", "auth.json")
	if got := FilePath(); got != want {
		t.Fatalf("FilePath() = %q, want %q", got, want)
	}
}

func TestSetKeyLifecycle(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	if err := SetKey(DefaultProvider, "apikey123456"); err != nil {
		t.Fatalf("SetKey() error: %v", err)
	}

	path := filepath.Join(tmp, "translaitor", "auth.json")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat auth.json: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("auth.json mode = %o, want 600", info.Mode().Perm())
	}

	if got := Key(DefaultProvider); got != "apikey123456" {
		t.Fatalf("Key() = %q, want apikey123456", got)
	}

	if err := SetKey(DefaultProvider, "newkey7890123"); err != nil {
		t.Fatalf("SetKey() upsert error: %v", err)
	}
	if got := Key(DefaultProvider); got != "newkey7890123" {
		t.Fatalf("Key() after upsert = %q, want newkey7890123", got)
	}

	if err := Remove(DefaultProvider); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if got := Key(DefaultProvider); got != "" {
		t.Fatalf("Key() after remove = %q, want empty", got)
	}

	if err := Remove("missing-provider"); err != nil {
		t.Fatalf("Remove(missing) should be no-op, got: %v", err)
	}
}

func TestSetKeyPreservesBaseURL(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	store := Store{DefaultProvider: {Key: "old", BaseURL: "https://gw.example.com"}}
	if err := Save(store); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	if err := SetKey(DefaultProvider, "new"); err != nil {
		t.Fatalf("SetKey() error: %v", err)
	}
	loaded := Load()
	if loaded[DefaultProvider].BaseURL != "https://gw.example.com" {
		t.Fatalf("BaseURL lost on key update: %#v", loaded[DefaultProvider])
	}
}

func TestLoadMissingOrInvalid(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	if got := Load(); len(got) != 0 {
		t.Fatalf("Load() with no file should be empty, got %#v", got)
	}

	dir := filepath.Join(tmp, "translaitor")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "auth.json"), []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := Load(); len(got) != 0 {
		t.Fatalf("Load() with invalid file should be empty, got %#v", got)
	}
}

func TestMaskKey(t *testing.T) {
	if got := MaskKey("short"); got != "****" {
		t.Errorf("MaskKey(short) = %q", got)
	}
	if got := MaskKey("AIzaSyExample1234"); got != "AIza...1234" {
		t.Errorf("MaskKey = %q, want AIza...1234", got)
	}
}
