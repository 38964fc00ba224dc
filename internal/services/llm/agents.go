package llm

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Agent names shipped in the default catalog.
const (
	AgentResearcher     = "RESEARCHER"
	AgentScriptWriter   = "SCRIPT_WRITER"
	AgentScriptReviewer = "SCRIPT_REVIEWER"
	AgentSEOWriter      = "SEO_WRITER"
	AgentMermaid        = "MERMAID_GENERATOR"
	AgentNewsResearcher = "NEWS_RESEARCHER"
	AgentNewsWriter     = "NEWSLETTER_WRITER"
	AgentNewsReviewer   = "NEWSLETTER_REVIEWER"
	AgentTinderRoast    = "TINDER_ROAST"
	AgentDebateChatGPT  = "DEBATE_CHATGPT"
	AgentDebateClaude   = "DEBATE_CLAUDE"
	AgentDebateGemini   = "DEBATE_GEMINI"
	AgentDebateGrok     = "DEBATE_GROK"
	AgentDebateCouncil  = "DEBATE_COUNCIL"
)

//go:embed agents.yaml
var defaultAgentsYAML []byte

// Agent is a named role with its own system prompt.
type Agent struct {
	System      string  `yaml:"system"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	JSON        bool    `yaml:"json"`
}

// Catalog maps agent names to their definitions. Names are case-insensitive.
type Catalog map[string]Agent

// Lookup returns the agent registered under name.
func (c Catalog) Lookup(name string) (Agent, bool) {
	agent, ok := c[normalizeAgentName(name)]
	return agent, ok
}

// DefaultCatalog returns the embedded agent definitions.
func DefaultCatalog() Catalog {
	catalog, err := parseCatalog(defaultAgentsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded agents.yaml: %v", err))
	}
	return catalog
}

// LoadCatalog reads agent overrides from path on top of the defaults. An
// empty path returns the defaults. Overrides replace whole agents.
func LoadCatalog(path string) (Catalog, error) {
	catalog := DefaultCatalog()
	path = strings.TrimSpace(path)
	if path == "" {
		return catalog, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agents file: %w", err)
	}
	overrides, err := parseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("parse agents file %s: %w", path, err)
	}
	for name, agent := range overrides {
		catalog[name] = agent
	}
	return catalog, nil
}

func parseCatalog(data []byte) (Catalog, error) {
	var raw map[string]Agent
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	catalog := make(Catalog, len(raw))
	for name, agent := range raw {
		agent.System = strings.TrimSpace(agent.System)
		if agent.System == "" {
			return nil, fmt.Errorf("agent %s: system prompt required", name)
		}
		catalog[normalizeAgentName(name)] = agent
	}
	return catalog, nil
}

func normalizeAgentName(name string) string {
	return strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(name, "-", "_")))
}
