package skillmd

import (
	"strings"
	"testing"
)

const validSkillMD = `---
name: code-review
description: Reviews pull requests for style and correctness
license: MIT
metadata:
  author: platform-team
  version: "2"
allowed-tools: bash, read
---

# Code review

Look at the diff, leave comments.
`

func TestParseValidSkill(t *testing.T) {
	parsed, err := Parse(validSkillMD)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if parsed.Name != "code-review" {
		t.Fatalf("name = %q", parsed.Name)
	}
	if parsed.Description != "Reviews pull requests for style and correctness" {
		t.Fatalf("description = %q", parsed.Description)
	}
	if parsed.License != "MIT" {
		t.Fatalf("license = %q", parsed.License)
	}
	if parsed.AllowedTools != "bash, read" {
		t.Fatalf("allowed_tools = %q", parsed.AllowedTools)
	}
	if parsed.Metadata["author"] != "platform-team" {
		t.Fatalf("metadata = %v", parsed.Metadata)
	}
	if !strings.HasPrefix(parsed.Instructions, "# Code review") {
		t.Fatalf("instructions = %q", parsed.Instructions)
	}
}

func TestParseRejections(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantSub string
	}{
		{
			name:    "empty_input",
			content: "",
			wantSub: "empty",
		},
		{
			name:    "no_frontmatter",
			content: "just a body",
			wantSub: "frontmatter",
		},
		{
			name:    "unterminated_frontmatter",
			content: "---\nname: a\ndescription: b",
			wantSub: "terminated",
		},
		{
			name:    "missing_name",
			content: "---\ndescription: d\n---\nbody",
			wantSub: "'name' is required",
		},
		{
			name:    "missing_description",
			content: "---\nname: ok-skill\n---\nbody",
			wantSub: "'description' is required",
		},
		{
			name:    "consecutive_hyphens",
			content: "---\nname: my--skill\ndescription: d\n---\nbody",
			wantSub: "hyphen",
		},
		{
			name:    "uppercase_name",
			content: "---\nname: MySkill\ndescription: d\n---\nbody",
			wantSub: "lowercase",
		},
		{
			name:    "leading_hyphen",
			content: "---\nname: -skill\ndescription: d\n---\nbody",
			wantSub: "alphanumeric",
		},
		{
			name:    "name_too_long",
			content: "---\nname: " + strings.Repeat("a", 65) + "\ndescription: d\n---\nbody",
			wantSub: "64",
		},
		{
			name:    "description_too_long",
			content: "---\nname: ok-skill\ndescription: " + strings.Repeat("x", 1025) + "\n---\nbody",
			wantSub: "1024",
		},
		{
			name:    "metadata_not_mapping",
			content: "---\nname: ok-skill\ndescription: d\nmetadata: [1, 2]\n---\nbody",
			wantSub: "mapping",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.content)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error containing %q", tc.content, tc.wantSub)
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error %q does not mention %q", err.Error(), tc.wantSub)
			}
		})
	}
}

func TestParseNameBoundaries(t *testing.T) {
	for _, name := range []string{"a", "a1", "skill-with-hyphens", strings.Repeat("a", 64)} {
		content := "---\nname: " + name + "\ndescription: d\n---\nbody"
		if _, err := Parse(content); err != nil {
			t.Fatalf("Parse with name %q failed: %v", name, err)
		}
	}
}

func TestRoundTripIsIdempotent(t *testing.T) {
	parsed, err := Parse(validSkillMD)
	if err != nil {
		t.Fatalf("first parse: %v", err)
	}
	rebuilt := Rebuild(parsed)
	reparsed, err := Parse(rebuilt)
	if err != nil {
		t.Fatalf("reparse of rebuilt SKILL.md: %v\n%s", err, rebuilt)
	}
	if reparsed.Name != parsed.Name ||
		reparsed.Description != parsed.Description ||
		reparsed.Instructions != parsed.Instructions ||
		reparsed.License != parsed.License ||
		reparsed.AllowedTools != parsed.AllowedTools {
		t.Fatalf("round trip drifted:\nfirst:  %+v\nsecond: %+v", parsed, reparsed)
	}
	if len(reparsed.Metadata) != len(parsed.Metadata) {
		t.Fatalf("metadata drifted: %v vs %v", parsed.Metadata, reparsed.Metadata)
	}
}
