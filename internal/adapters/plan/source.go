// Package plan adapts a Loam document repository to ports.PlanSource. Plan
// documents are markdown with frontmatter; espalier reads only the declared
// check list from that frontmatter and leaves everything else to the plan's
// human authors.
package plan

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"
	"github.com/mitchellh/mapstructure"

	"github.com/gardenfork/espalier/pkg/domain"
)

// Metadata is the frontmatter espalier understands on a plan document.
type Metadata struct {
	Title  string      `json:"title" mapstructure:"title"`
	Checks []CheckMeta `json:"checks" mapstructure:"checks"`
}

// CheckMeta is one declared check in plan frontmatter.
type CheckMeta struct {
	Name    string `json:"name" mapstructure:"name"`
	Kind    string `json:"kind" mapstructure:"kind"`
	Command string `json:"command" mapstructure:"command"`
}

// Source reads declared checks from a Loam repository of plan documents.
type Source struct {
	repo *loam.TypedRepository[Metadata]
	root string
}

// NewSource opens the plans directory read-only. Espalier never writes plan
// documents.
func NewSource(plansDir string) (*Source, error) {
	absPath, err := filepath.Abs(plansDir)
	if err != nil {
		return nil, fmt.Errorf("invalid plans path: %w", err)
	}

	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize plan repository: %w", err)
	}

	return &Source{
		repo: loam.NewTypedRepository[Metadata](repo),
		root: absPath,
	}, nil
}

// DeclaredChecks returns the checks the plan currently declares. A plan
// with no checks frontmatter declares none; the verification snapshot then
// aggregates to pass vacuously.
func (s *Source) DeclaredChecks(ctx context.Context, planPath string) ([]domain.Check, error) {
	doc, err := s.repo.Get(ctx, s.docID(planPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load plan %s: %w", planPath, err)
	}
	return ChecksFromMetadata(doc.Data)
}

// docID normalizes a plan path to the repository's document ID: relative to
// the repository root, extension trimmed.
func (s *Source) docID(planPath string) string {
	id := planPath
	if rel, err := filepath.Rel(s.root, planPath); err == nil && !strings.HasPrefix(rel, "..") {
		id = rel
	}
	if ext := filepath.Ext(id); ext != "" {
		id = strings.TrimSuffix(id, ext)
	}
	return filepath.ToSlash(id)
}

// ChecksFromMetadata maps frontmatter check declarations to domain checks.
// Unknown kinds default to command; nameless entries are rejected.
func ChecksFromMetadata(meta Metadata) ([]domain.Check, error) {
	checks := make([]domain.Check, 0, len(meta.Checks))
	for i, cm := range meta.Checks {
		if cm.Name == "" {
			return nil, fmt.Errorf("check %d has no name", i)
		}
		kind := domain.CheckKind(cm.Kind)
		if kind != domain.CheckKindManual {
			kind = domain.CheckKindCommand
		}
		checks = append(checks, domain.Check{
			Name:    cm.Name,
			Kind:    kind,
			Command: cm.Command,
		})
	}
	return checks, nil
}

// DecodeMetadata decodes a raw frontmatter map into Metadata. Exposed for
// callers that already hold parsed frontmatter.
func DecodeMetadata(raw map[string]any) (Metadata, error) {
	var meta Metadata
	if err := mapstructure.Decode(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("failed to decode plan frontmatter: %w", err)
	}
	return meta, nil
}
