package cleaner

import (
	"strings"
	"testing"
)

func TestClean_StripsScriptsAndStyles(t *testing.T) {
	html := `<html><head><style>.x{color:red}</style></head>
	<body><script>alert("hi")</script><div>Name: John Doe, Age: 25</div></body></html>`

	cleaned := Clean(html)

	if !strings.Contains(cleaned, "Name: John Doe, Age: 25") {
		t.Errorf("expected record text to survive, got %q", cleaned)
	}
	if strings.Contains(cleaned, "alert") {
		t.Error("script content should be removed")
	}
	if strings.Contains(cleaned, "color:red") {
		t.Error("style content should be removed")
	}
}

func TestClean_CollapsesWhitespace(t *testing.T) {
	cleaned := Clean("<body><p>Name:    Priya\n\n\t Sharma</p></body>")

	if strings.Contains(cleaned, "  ") {
		t.Errorf("expected collapsed whitespace, got %q", cleaned)
	}
	if !strings.Contains(cleaned, "Name: Priya Sharma") {
		t.Errorf("unexpected text %q", cleaned)
	}
}

func TestClean_StripsNavAndFooter(t *testing.T) {
	html := `<body><nav>Home | About</nav><div>Age: 30</div><footer>Copyright</footer></body>`

	cleaned := Clean(html)
	if strings.Contains(cleaned, "Copyright") || strings.Contains(cleaned, "Home | About") {
		t.Errorf("expected chrome removed, got %q", cleaned)
	}
	if !strings.Contains(cleaned, "Age: 30") {
		t.Errorf("expected content kept, got %q", cleaned)
	}
}

func TestClean_EmptyResultFallsBackToInput(t *testing.T) {
	html := "<body><script>only_noise()</script></body>"
	if got := Clean(html); got != html {
		t.Errorf("expected raw input back when nothing survives, got %q", got)
	}
}

func TestTitle(t *testing.T) {
	html := "<html><head><title> Missing Persons </title></head><body></body></html>"
	if got := Title(html); got != "Missing Persons" {
		t.Errorf("expected trimmed title, got %q", got)
	}
}
