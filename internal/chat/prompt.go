package chat

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed prompts/system.txt
var defaultSystemPrompt string

// SystemPrompt returns the consultancy policy that steers the model. With an
// empty path the embedded default is used; otherwise the file at path
// replaces it, which lets operators tune the policy without rebuilding.
func SystemPrompt(path string) (string, error) {
	if path == "" {
		return defaultSystemPrompt, nil
	}

	content, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return "", fmt.Errorf("reading system prompt %s: %w", path, err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return "", fmt.Errorf("system prompt %s is empty", path)
	}
	return string(content), nil
}
