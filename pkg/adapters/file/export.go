package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/gardenfork/espalier/pkg/domain"
)

// ExportVersion identifies the bulk stream format.
const ExportVersion = 1

// ExportHeader is the metadata line leading a bulk export stream.
type ExportHeader struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	RunCount   int       `json:"run_count"`
}

// ImportSummary accumulates per-record outcomes of a bulk import. Records
// are processed independently; one malformed line never aborts the batch.
type ImportSummary struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
}

// Export writes every run as a newline-delimited record stream: one
// metadata line, then one run per line sorted by ID for deterministic
// diffs.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	runs, err := s.List(ctx)
	if err != nil {
		return err
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID < runs[j].ID })

	enc := json.NewEncoder(w)
	header := ExportHeader{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		RunCount:   len(runs),
	}
	if err := enc.Encode(header); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for _, run := range runs {
		if err := enc.Encode(run); err != nil {
			return fmt.Errorf("failed to write run %s: %w", run.ID, err)
		}
	}
	return nil
}

// Import reads a bulk stream and reconciles each record against the store
// by comparing Updated timestamps: an incoming record wins only when it is
// strictly newer. Malformed record lines are counted as skipped, never
// thrown mid-batch; a malformed header is fatal since the stream itself is
// not trustworthy.
func (s *Store) Import(ctx context.Context, r io.Reader) (*ImportSummary, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read import stream: %w", err)
		}
		return nil, fmt.Errorf("import stream is empty")
	}
	var header ExportHeader
	if err := json.Unmarshal(scanner.Bytes(), &header); err != nil {
		return nil, fmt.Errorf("failed to decode export header: %w", err)
	}
	if header.Version != ExportVersion {
		return nil, fmt.Errorf("unsupported export version %d (want %d)", header.Version, ExportVersion)
	}

	summary := &ImportSummary{}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var incoming domain.Run
		if err := json.Unmarshal(line, &incoming); err != nil || incoming.ID == "" {
			summary.Skipped++
			continue
		}

		existing, err := s.Load(ctx, incoming.ID)
		switch {
		case err == nil:
			if !incoming.Updated.After(existing.Updated) {
				summary.Unchanged++
				continue
			}
			if err := s.Save(ctx, &incoming); err != nil {
				summary.Skipped++
				continue
			}
			summary.Updated++
		case errors.Is(err, domain.ErrRunNotFound):
			if err := s.Save(ctx, &incoming); err != nil {
				summary.Skipped++
				continue
			}
			summary.Created++
		default:
			summary.Skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("failed to read import stream: %w", err)
	}
	return summary, nil
}
