// Package skillmd parses SKILL.md documents: YAML frontmatter delimited by
// --- lines followed by a markdown body that becomes the skill instructions.
package skillmd

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Skill name: lowercase alphanumeric + hyphens, must start/end alphanumeric,
// 1-64 chars. Consecutive hyphens are rejected separately for a clearer message.
var skillNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,62}[a-z0-9])?$`)

type ParsedSkill struct {
	Name          string
	Description   string
	Instructions  string
	License       string
	Compatibility string
	Metadata      map[string]any
	AllowedTools  string
}

type frontmatter struct {
	Name          string         `yaml:"name"`
	Description   string         `yaml:"description"`
	License       *string        `yaml:"license"`
	Compatibility *string        `yaml:"compatibility"`
	Metadata      yaml.Node      `yaml:"metadata"`
	AllowedTools  *string        `yaml:"allowed-tools"`
	Rest          map[string]any `yaml:",inline"`
}

// Parse validates and parses SKILL.md content.
func Parse(content string) (*ParsedSkill, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("SKILL.md is empty")
	}

	fmStr, body, err := splitFrontmatter(content)
	if err != nil {
		return nil, err
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(fmStr), &fm); err != nil {
		return nil, fmt.Errorf("invalid YAML frontmatter: %w", err)
	}

	name := strings.TrimSpace(fm.Name)
	if name == "" {
		return nil, fmt.Errorf("'name' is required in frontmatter")
	}
	if len(name) > 64 {
		return nil, fmt.Errorf("'name' must be 64 characters or fewer")
	}
	if strings.Contains(name, "--") {
		return nil, fmt.Errorf("'name' must not contain consecutive hyphens")
	}
	if !skillNamePattern.MatchString(name) {
		return nil, fmt.Errorf("'name' must be lowercase alphanumeric with hyphens, and must start/end with an alphanumeric")
	}

	description := strings.TrimSpace(fm.Description)
	if description == "" {
		return nil, fmt.Errorf("'description' is required in frontmatter")
	}
	if len(description) > 1024 {
		return nil, fmt.Errorf("'description' must be 1024 characters or fewer")
	}

	var metadata map[string]any
	if !fm.Metadata.IsZero() {
		if fm.Metadata.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("'metadata' must be a mapping if provided")
		}
		if err := fm.Metadata.Decode(&metadata); err != nil {
			return nil, fmt.Errorf("'metadata' must be a mapping if provided")
		}
	}

	parsed := &ParsedSkill{
		Name:         name,
		Description:  description,
		Instructions: strings.TrimSpace(body),
		Metadata:     metadata,
	}
	if fm.License != nil {
		parsed.License = strings.TrimSpace(*fm.License)
	}
	if fm.Compatibility != nil {
		parsed.Compatibility = strings.TrimSpace(*fm.Compatibility)
	}
	if fm.AllowedTools != nil {
		parsed.AllowedTools = strings.TrimSpace(*fm.AllowedTools)
	}
	return parsed, nil
}

// splitFrontmatter separates the YAML between the first two --- delimiter
// lines from the remaining body.
func splitFrontmatter(content string) (string, string, error) {
	lines := strings.Split(content, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", "", fmt.Errorf("SKILL.md must start with YAML frontmatter delimited by ---")
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n"), nil
		}
	}
	return "", "", fmt.Errorf("SKILL.md frontmatter is not terminated by ---")
}

// Rebuild serialises a parsed skill back to SKILL.md form. Parse(Rebuild(s))
// is idempotent modulo YAML key ordering.
func Rebuild(parsed *ParsedSkill) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "name: %s\n", yamlScalar(parsed.Name))
	fmt.Fprintf(&b, "description: %s\n", yamlScalar(parsed.Description))
	if parsed.License != "" {
		fmt.Fprintf(&b, "license: %s\n", yamlScalar(parsed.License))
	}
	if parsed.Compatibility != "" {
		fmt.Fprintf(&b, "compatibility: %s\n", yamlScalar(parsed.Compatibility))
	}
	if len(parsed.Metadata) > 0 {
		out, err := yaml.Marshal(map[string]any{"metadata": parsed.Metadata})
		if err == nil {
			b.Write(out)
		}
	}
	if parsed.AllowedTools != "" {
		fmt.Fprintf(&b, "allowed-tools: %s\n", yamlScalar(parsed.AllowedTools))
	}
	b.WriteString("---\n\n")
	b.WriteString(parsed.Instructions)
	b.WriteString("\n")
	return b.String()
}

func yamlScalar(v string) string {
	out, err := yaml.Marshal(v)
	if err != nil {
		return v
	}
	return strings.TrimSpace(string(out))
}
