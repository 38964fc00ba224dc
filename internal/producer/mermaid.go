package producer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"shortsmith/internal/script"
	"shortsmith/internal/services"
	"shortsmith/internal/services/llm"
)

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Mermaid asks the diagram agent for Mermaid source and renders it to PNG
// with the mermaid CLI.
type Mermaid struct {
	llm       Completer
	binary    string
	publicDir string
	run       Runner
}

// NewMermaid returns a Mermaid illustrator. A nil run uses os/exec.
func NewMermaid(completer Completer, binary, publicDir string, run Runner) *Mermaid {
	if strings.TrimSpace(binary) == "" {
		binary = "mmdc"
	}
	if run == nil {
		run = execRunner
	}
	return &Mermaid{llm: completer, binary: binary, publicDir: publicDir, run: run}
}

// Illustrate writes mermaid-<id>.png in the public directory.
func (m *Mermaid) Illustrate(ctx context.Context, ill script.Illustration, segmentText, id string) (string, error) {
	prompt := fmt.Sprintf("Diagram: %s \n\nContext: %s", ill.Description, segmentText)
	code, err := m.llm.Complete(ctx, llm.AgentMermaid, prompt)
	if err != nil {
		return "", err
	}
	code = stripFence(code)
	if code == "" {
		return "", services.Wrap(services.ErrValidation, "illustration", "mermaid", "agent returned no diagram", nil)
	}

	src := filepath.Join(m.publicDir, fmt.Sprintf("mermaid-%s.mmd", id))
	if err := os.WriteFile(src, []byte(code), 0o644); err != nil {
		return "", services.Wrap(services.ErrTransient, "illustration", "mermaid", src, err)
	}
	defer os.Remove(src)

	name := fmt.Sprintf("mermaid-%s.png", id)
	out := filepath.Join(m.publicDir, name)
	if output, err := m.run(ctx, m.binary, "-i", src, "-o", out, "-b", "transparent"); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "illustration", "mermaid",
			strings.TrimSpace(string(output)), err)
	}
	return name, nil
}

func stripFence(code string) string {
	code = strings.TrimSpace(code)
	if !strings.HasPrefix(code, "```") {
		return code
	}
	code = strings.TrimPrefix(code, "```")
	if nl := strings.IndexByte(code, '\n'); nl >= 0 {
		code = code[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(code), "```"))
}
