package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReplaceExt(t *testing.T) {
	cases := map[string]string{
		"deck.pptx":     "deck.hu.pptx",
		"dir/deck.pptx": "dir/deck.hu.pptx",
		"noext":         "noext.hu.pptx",
		"two.dots.pptx": "two.dots.hu.pptx",
		"already.json":  "already.hu.pptx",
	}
	for in, want := range cases {
		if got := replaceExt(in, ".hu.pptx"); got != want {
			t.Errorf("replaceExt(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFindPresentations(t *testing.T) {
	dir := t.TempDir()
	touch := func(rel string) {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	touch("a.pptx")
	touch("b.PPTX")
	touch("notes.txt")
	touch("~$a.pptx")      // Office lock file
	touch("a.hu.pptx")     // previous output for the target language
	touch("sub/c.pptx")    // only with --recursive
	touch("sub/deep.docx") // wrong extension

	got, err := findPresentations(dir, false, "hu")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("flat scan = %v, want a.pptx and b.PPTX", got)
	}

	got, err = findPresentations(dir, true, "hu")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("recursive scan = %v, want sub/c.pptx included", got)
	}
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"extract", "translate", "reintegrate", "translate-pptx", "translate-dir", "styles", "auth", "version"} {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
