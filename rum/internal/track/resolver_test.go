package track

import (
	"testing"

	"github.com/hazyhaar/rumwatch/rum/internal/instrument"
)

func TestResolveTarget_AttrPriority(t *testing.T) {
	n := instrument.Node{
		Tag: "a",
		Attrs: map[string]string{
			"href": "https://site.example/next",
			"src":  "/ignored.png",
		},
	}
	got, ok := ResolveTarget(n)
	if !ok || got != "https://site.example/next" {
		t.Errorf("got %q, ok=%v", got, ok)
	}
}

func TestResolveTarget_FallsBackToID(t *testing.T) {
	got, ok := ResolveTarget(instrument.Node{Tag: "div", ID: "hero"})
	if !ok || got != "#hero" {
		t.Errorf("got %q, ok=%v", got, ok)
	}
}

func TestResolveTarget_NothingUsable(t *testing.T) {
	if _, ok := ResolveTarget(instrument.Node{Tag: "div"}); ok {
		t.Error("bare div should not resolve")
	}
}

func TestResolveSource_PathFirst(t *testing.T) {
	got, ok := ResolveSource(instrument.Node{Path: "main > div", Block: "hero"})
	if !ok || got != "main > div" {
		t.Errorf("got %q, ok=%v", got, ok)
	}
}

func TestResolveSource_BlockFallback(t *testing.T) {
	got, ok := ResolveSource(instrument.Node{Block: "hero"})
	if !ok || got != ".hero" {
		t.Errorf("got %q, ok=%v", got, ok)
	}
}

func TestResolveSource_Empty(t *testing.T) {
	if _, ok := ResolveSource(instrument.Node{}); ok {
		t.Error("empty node should not resolve")
	}
}

func TestSnippetLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`<img src="a.jpg" alt="Hero" width="40">`, `<img alt="Hero" src="a.jpg">`},
		{`<div class="teaser"><p>hi</p></div>`, `<div class="teaser">`},
		{"", ""},
		{"plain text", "plain text"},
	}
	for _, tt := range tests {
		if got := SnippetLabel(tt.in); got != tt.want {
			t.Errorf("SnippetLabel(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
