package naming

import (
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(42)

	if !strings.Contains(prompt, "42 photos") {
		t.Errorf("prompt should include the face count, got: %s", prompt)
	}
	if !strings.Contains(prompt, "Never guess a real name") {
		t.Error("prompt should forbid guessing real names")
	}
	if strings.Contains(prompt, "%d") {
		t.Error("prompt should have all placeholders filled")
	}
}
