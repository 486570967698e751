package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// Frontmatter is the YAML header every stage artifact carries before its
// Markdown body. Grounded on the manifest columns (title, date, status,
// agentType, topics) SPEC_FULL.md's document-manifest component indexes.
type Frontmatter struct {
	EpicID    string   `yaml:"epicId"`
	Stage     string   `yaml:"stage"`
	Title     string   `yaml:"title"`
	Status    string   `yaml:"status"`
	AgentType string   `yaml:"agentType,omitempty"`
	Topics    []string `yaml:"topics,omitempty"`
}

// requiredSections lists the Markdown headings a stage's artifact must
// contain to be considered complete. Not every stage requires the same
// shape, mirroring how the teacher's PRD parsing expects different
// sections from a PM-facilitator response vs. an expert response.
var requiredSections = map[string][]string{
	string(StageResearch):       {"## Findings"},
	string(StageConsensus):      {"## Agreement", "## Dissent"},
	string(StageADR):            {"## Decision", "## Consequences"},
	string(StageSpecification):  {"## Requirements"},
	string(StageDecomposition):  {"## Tasks"},
	string(StageImplementation): {"## Summary"},
	string(StageContribution):   {"## Changes"},
	string(StageRelease):        {"## Release Notes"},
}

// ArtifactStore scaffolds and validates stage artifacts at the fixed path
// rcasd/<epicId>/<stage>/<epicId>-<stage>.md.
type ArtifactStore struct {
	root string
}

// NewArtifactStore roots artifact paths under root.
func NewArtifactStore(root string) *ArtifactStore {
	return &ArtifactStore{root: root}
}

// Path returns the fixed artifact path for an epic/stage pair.
func (a *ArtifactStore) Path(epicID, stage string) string {
	return filepath.Join(a.root, "rcasd", epicID, stage, fmt.Sprintf("%s-%s.md", epicID, stage))
}

// Scaffold writes a new artifact file with frontmatter and empty
// required-section headers, using a tempfile-then-rename write so a
// crash mid-write never leaves a half-written artifact. Grounded on
// kanban/state.go's Save (os.CreateTemp in the target dir, then
// os.Rename).
func (a *ArtifactStore) Scaffold(fm Frontmatter) (string, error) {
	path := a.Path(fm.EpicID, fm.Stage)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	var body strings.Builder
	yamlBytes, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}
	body.WriteString("---\n")
	body.Write(yamlBytes)
	body.WriteString("---\n\n")
	body.WriteString("# " + fm.Title + "\n\n")
	for _, section := range requiredSections[fm.Stage] {
		body.WriteString(section + "\n\n_TODO_\n\n")
	}

	if err := atomicWriteFile(path, []byte(body.String())); err != nil {
		return "", err
	}
	return path, nil
}

// Validate parses the artifact at path and confirms every required
// section for stage is present with non-placeholder content, and that
// the document is well-formed Markdown (goldmark must parse it without
// producing zero top-level blocks).
func (a *ArtifactStore) Validate(path, stage string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}

	body := data
	if strings.HasPrefix(string(data), "---\n") {
		rest := strings.SplitN(string(data)[4:], "\n---\n", 2)
		if len(rest) != 2 {
			return fmt.Errorf("artifact frontmatter is not terminated with ---")
		}
		var fm Frontmatter
		if err := yaml.Unmarshal([]byte(rest[0]), &fm); err != nil {
			return fmt.Errorf("invalid frontmatter: %w", err)
		}
		body = []byte(rest[1])
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(body), parser.WithContext(parser.NewContext()))
	if doc.ChildCount() == 0 {
		return fmt.Errorf("artifact body is empty")
	}

	for _, section := range requiredSections[stage] {
		idx := strings.Index(string(body), section)
		if idx == -1 {
			return fmt.Errorf("artifact is missing required section %q", section)
		}
		after := string(body)[idx+len(section):]
		if strings.Contains(strings.SplitN(after, "\n## ", 2)[0], "_TODO_") {
			return fmt.Errorf("required section %q still contains a TODO placeholder", section)
		}
	}
	return nil
}

func atomicWriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp artifact into place: %w", err)
	}
	return nil
}
