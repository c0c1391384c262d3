// Package checklist defines the ordered artifact checklists a probe run verifies.
// A checklist is a sequence of steps; each step groups one or more filesystem targets
// that must all exist for the step to pass.
package checklist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyChecklist is returned when a checklist has no steps.
	ErrEmptyChecklist = errors.New("checklist has no steps")
	// ErrInvalidKind is returned for a target kind other than file or dir.
	ErrInvalidKind = errors.New("invalid target kind")

	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// Kind is the filesystem type a target must have.
type Kind string

const (
	KindFile Kind = "file" // [ -f path ]
	KindDir  Kind = "dir"  // [ -d path ]
)

// ParseKind normalizes a kind name from a manifest or flag.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file", "f":
		return KindFile, nil
	case "dir", "directory", "d":
		return KindDir, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// UnmarshalYAML accepts the short and long kind spellings.
func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseKind(raw)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Target is a single path assertion.
type Target struct {
	Path string `yaml:"path" json:"path"`
	Kind Kind   `yaml:"kind" json:"kind"`
}

func (t Target) String() string {
	return fmt.Sprintf("%s %s", t.Kind, t.Path)
}

// Resolve returns the target path joined to root, unless it is already absolute.
func (t Target) Resolve(root string) string {
	p := filepath.FromSlash(t.Path)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Step groups targets that are reported together.
type Step struct {
	ID      string   `yaml:"id,omitempty" json:"id"`
	Name    string   `yaml:"name" json:"name"`
	Targets []Target `yaml:"targets" json:"targets"`
}

// Checklist is an ordered list of steps.
type Checklist struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Steps       []Step `yaml:"steps" json:"steps"`
}

// Default returns the week 9 deployment-readiness checklist.
func Default() *Checklist {
	return &Checklist{
		Name:        "week9",
		Description: "Week 9 deployment readiness",
		Steps: []Step{
			{
				ID:   "production-env",
				Name: "Production environment file",
				Targets: []Target{
					{Path: ".env.production", Kind: KindFile},
				},
			},
			{
				ID:   "integration-tests",
				Name: "Integration tests",
				Targets: []Target{
					{Path: "tests/test_integration.py", Kind: KindFile},
				},
			},
			{
				ID:   "documentation",
				Name: "Documentation",
				Targets: []Target{
					{Path: "README.md", Kind: KindFile},
					{Path: "docs/DEPLOYMENT_GUIDE.md", Kind: KindFile},
				},
			},
			{
				ID:   "backend",
				Name: "Backend structure",
				Targets: []Target{
					{Path: "backend/app", Kind: KindDir},
					{Path: "backend/main.py", Kind: KindFile},
				},
			},
			{
				ID:   "frontend",
				Name: "Frontend structure",
				Targets: []Target{
					{Path: "frontend/src", Kind: KindDir},
					{Path: "frontend/package.json", Kind: KindFile},
				},
			},
		},
	}
}

// Load reads a checklist manifest from a YAML file.
// Missing step IDs are filled in from the step names.
func Load(path string) (*Checklist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML manifest.
func Parse(data []byte) (*Checklist, error) {
	var c Checklist
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	c.fillIDs()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes the checklist as YAML, creating parent directories.
func (c *Checklist) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Validate checks structural constraints on the checklist.
func (c *Checklist) Validate() error {
	if len(c.Steps) == 0 {
		return ErrEmptyChecklist
	}

	seen := make(map[string]int, len(c.Steps))
	for i, step := range c.Steps {
		if step.Name == "" && step.ID == "" {
			return fmt.Errorf("step %d: name required", i+1)
		}
		if len(step.Targets) == 0 {
			return fmt.Errorf("step %q: no targets", step.label())
		}
		if prev, dup := seen[step.ID]; dup && step.ID != "" {
			return fmt.Errorf("step %q: duplicate id (also step %d)", step.ID, prev+1)
		}
		seen[step.ID] = i
		for j, t := range step.Targets {
			if strings.TrimSpace(t.Path) == "" {
				return fmt.Errorf("step %q target %d: empty path", step.label(), j+1)
			}
			if t.Kind != KindFile && t.Kind != KindDir {
				return fmt.Errorf("step %q target %q: %w: %q", step.label(), t.Path, ErrInvalidKind, t.Kind)
			}
		}
	}
	return nil
}

// TargetCount returns the total number of targets across all steps.
func (c *Checklist) TargetCount() int {
	n := 0
	for _, s := range c.Steps {
		n += len(s.Targets)
	}
	return n
}

func (c *Checklist) fillIDs() {
	for i := range c.Steps {
		if c.Steps[i].ID == "" {
			c.Steps[i].ID = Slugify(c.Steps[i].Name, fmt.Sprintf("step-%d", i+1))
		}
	}
}

func (s Step) label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Slugify lowercases input and collapses runs of non-alphanumerics into dashes.
// The fallback is used when input has no usable characters.
func Slugify(input, fallback string) string {
	if slug := slugify(input); slug != "" {
		return slug
	}
	return slugify(fallback)
}

func slugify(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	slug := nonSlugChars.ReplaceAllString(lower, "-")
	return strings.Trim(slug, "-")
}
