package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/teamhub/internal/app/system/htmlsanitize"
)

func TestSanitize_Empty(t *testing.T) {
	if got := htmlsanitize.Sanitize(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestSanitize_SafeHTML(t *testing.T) {
	input := "<p><strong>Bold</strong> and <em>italic</em></p>"
	if got := htmlsanitize.Sanitize(input); got != input {
		t.Errorf("expected safe HTML preserved, got %q", got)
	}
}

func TestSanitize_RemovesScript(t *testing.T) {
	input := "<p>Hello</p><script>alert('xss')</script>"
	if got := htmlsanitize.Sanitize(input); got != "<p>Hello</p>" {
		t.Errorf("expected script removed, got %q", got)
	}
}

func TestSanitize_RemovesEventHandlers(t *testing.T) {
	tests := []struct {
		name, input, banned string
	}{
		{"onclick", `<button onclick="alert('xss')">Click</button>`, "onclick"},
		{"onerror", `<img src="x" onerror="alert('xss')">`, "onerror"},
		{"javascript href", `<a href="javascript:alert('xss')">Click</a>`, "javascript:"},
		{"iframe", `<p>Content</p><iframe src="https://evil.com"></iframe>`, "iframe"},
		{"form", `<form action="/submit"><input type="text" name="data"></form>`, "<input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.Sanitize(tt.input); strings.Contains(got, tt.banned) {
				t.Errorf("expected %q removed, got %q", tt.banned, got)
			}
		})
	}
}

func TestSanitize_KeepsFormatting(t *testing.T) {
	tests := []string{
		"<ul><li>Item 1</li><li>Item 2</li></ul>",
		"<ol><li>First</li><li>Second</li></ol>",
		"<blockquote>A quote</blockquote>",
		"<h1>Heading 1</h1><h2>Heading 2</h2>",
		"<pre><code>function test() {}</code></pre>",
		"<u>underline</u> <s>strikethrough</s> <mark>mark</mark>",
	}
	for _, input := range tests {
		if got := htmlsanitize.Sanitize(input); got != input {
			t.Errorf("expected %q preserved, got %q", input, got)
		}
	}
}

func TestSanitize_AllowsSafeLinks(t *testing.T) {
	got := htmlsanitize.Sanitize(`<a href="https://example.com">Link</a>`)
	if !strings.Contains(got, "https://example.com") {
		t.Errorf("expected safe link preserved, got %q", got)
	}
}

func TestSanitize_TableAttributes(t *testing.T) {
	got := htmlsanitize.Sanitize(`<table class="grid"><tr><td colspan="2">Cell</td></tr></table>`)
	if !strings.Contains(got, `class="grid"`) || !strings.Contains(got, `colspan="2"`) {
		t.Errorf("expected table attributes preserved, got %q", got)
	}
}

func TestIsPlainText(t *testing.T) {
	tests := map[string]bool{
		"":              true,
		"Hello, World!": true,
		"5 < 10":        true,
		"5 > 3":         true,
		"<p>Hello</p>":  false,
	}
	for in, want := range tests {
		if got := htmlsanitize.IsPlainText(in); got != want {
			t.Errorf("IsPlainText(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"if a < b then ship it", "if a < b then ship it"},
		{"## Plan\n- step one", "## Plan\n- step one"},
		{"<p>Hi</p><script>x()</script>", "<p>Hi</p>"},
	}
	for _, tt := range tests {
		if got := htmlsanitize.Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
