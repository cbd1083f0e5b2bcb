// Package ingest reads generated type-description artifacts into
// TypeDescriptors.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/Pico-ROS/picoros-typegen/internal/discover"
	"github.com/Pico-ROS/picoros-typegen/internal/model"
)

const hashPrefix = "RIHS01_"

// ErrUnsupported marks a type that uses a field kind outside the kind table.
var ErrUnsupported = errors.New("unsupported field kind")

// ErrNoHash marks a type whose name is missing from the artifact's hash table.
var ErrNoHash = errors.New("no hash for type")

// RejectError explains why an artifact's primary type was not accepted.
type RejectError struct {
	Type   string
	Reason string
	Err    error
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("skipping %s: %s", e.Type, e.Reason)
}

func (e *RejectError) Unwrap() error {
	return e.Err
}

type artifact struct {
	TypeDescriptionMsg *struct {
		TypeDescription            description   `json:"type_description"`
		ReferencedTypeDescriptions []description `json:"referenced_type_descriptions"`
	} `json:"type_description_msg"`
	TypeHashes []struct {
		TypeName   string `json:"type_name"`
		HashString string `json:"hash_string"`
	} `json:"type_hashes"`
}

type description struct {
	TypeName string      `json:"type_name"`
	Fields   []jsonField `json:"fields"`
}

type jsonField struct {
	Name string `json:"name"`
	Type struct {
		TypeID         int    `json:"type_id"`
		Capacity       int    `json:"capacity"`
		StringCapacity int    `json:"string_capacity"`
		NestedTypeName string `json:"nested_type_name"`
	} `json:"type"`
}

// ParseArtifact decodes one artifact. It returns (nil, nil) when data is
// valid JSON but not a type-description artifact, and a *RejectError when
// the primary type cannot be used.
func ParseArtifact(data []byte, source string) (*model.TypeDescriptor, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", source, err)
	}
	if a.TypeDescriptionMsg == nil || a.TypeHashes == nil {
		return nil, nil
	}

	hashes := make(map[string]string, len(a.TypeHashes))
	for _, h := range a.TypeHashes {
		hashes[h.TypeName] = strings.TrimPrefix(h.HashString, hashPrefix)
	}

	primary := a.TypeDescriptionMsg.TypeDescription
	for _, ref := range a.TypeDescriptionMsg.ReferencedTypeDescriptions {
		for _, f := range ref.Fields {
			if _, ok := lookupKind(f.Type.TypeID); !ok {
				return nil, &RejectError{
					Type:   primary.TypeName,
					Reason: fmt.Sprintf("incompatible ref field type %d - %s", f.Type.TypeID, ref.TypeName),
					Err:    ErrUnsupported,
				}
			}
		}
	}

	hash, ok := hashes[primary.TypeName]
	if !ok {
		return nil, &RejectError{Type: primary.TypeName, Reason: "not listed in type_hashes", Err: ErrNoHash}
	}

	name, err := model.ParseQualifiedName(primary.TypeName)
	if err != nil {
		return nil, &RejectError{Type: primary.TypeName, Reason: err.Error(), Err: err}
	}

	fields, err := parseFields(primary.Fields)
	if err != nil {
		return nil, &RejectError{Type: primary.TypeName, Reason: err.Error(), Err: err}
	}

	return &model.TypeDescriptor{
		Name:   name,
		Hash:   hash,
		Fields: fields,
		Source: source,
	}, nil
}

// parseFields converts fields in order. Any field outside the kind table
// invalidates the whole list. An array id without a capacity is read as a
// single element of its base kind.
func parseFields(in []jsonField) ([]model.Field, error) {
	fields := make([]model.Field, 0, len(in))
	for _, jf := range in {
		id := jf.Type.TypeID
		entry, ok := lookupKind(id)
		if !ok {
			return nil, fmt.Errorf("field %s: incompatible id %d: %w", jf.Name, id, ErrUnsupported)
		}

		f := model.Field{Name: jf.Name, Kind: entry.kind}
		switch {
		case entry.kind == model.KindNested:
			if jf.Type.NestedTypeName == "" {
				return nil, fmt.Errorf("field %s: nested type without a name: %w", jf.Name, ErrUnsupported)
			}
			nested, err := model.ParseQualifiedName(jf.Type.NestedTypeName)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", jf.Name, err)
			}
			f.Nested = nested
		case entry.array && jf.Type.Capacity > 0:
			f.Array = true
			f.Capacity = jf.Type.Capacity
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// Options controls a directory ingestion.
type Options struct {
	Jobs   int // parse workers; 0 means GOMAXPROCS
	Logger *slog.Logger
}

// Result holds the accepted types and the rejected ones.
type Result struct {
	Types    map[model.QualifiedName]*model.TypeDescriptor
	Rejected []model.Drop
}

// Dir ingests every JSON artifact under root. Artifacts are parsed
// concurrently and merged in path order, so the first artifact (by path)
// defining a name wins.
func Dir(ctx context.Context, root string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	files, err := discover.Artifacts(root)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}

	parsed := parseConcurrent(ctx, files, opts.Jobs, logger)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Types: make(map[model.QualifiedName]*model.TypeDescriptor)}
	for i, p := range parsed {
		switch {
		case p.err != nil:
			var rej *RejectError
			if errors.As(p.err, &rej) {
				logger.Warn("skipping type", "type", rej.Type, "reason", rej.Reason, "file", files[i])
				res.Rejected = append(res.Rejected, model.Drop{Name: rej.Type, Reason: rej.Reason})
				continue
			}
			logger.Warn("failed to parse artifact", "file", files[i], "error", p.err)
		case p.desc != nil:
			if prev, dup := res.Types[p.desc.Name]; dup {
				if prev.Hash != p.desc.Hash {
					logger.Warn("conflicting definitions, keeping first",
						"type", p.desc.Name.String(), "kept", prev.Source, "ignored", p.desc.Source)
				}
				continue
			}
			logger.Debug("adding type", "type", p.desc.Name.String())
			res.Types[p.desc.Name] = p.desc
		}
	}
	return res, nil
}

type parsedArtifact struct {
	desc *model.TypeDescriptor
	err  error
}

func parseConcurrent(ctx context.Context, files []string, jobs int, logger *slog.Logger) []parsedArtifact {
	results := make([]parsedArtifact, len(files))
	if len(files) == 0 {
		return results
	}

	numWorkers := jobs
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	var wg sync.WaitGroup
	for n := 0; n < numWorkers; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				if ctx.Err() != nil {
					continue
				}
				data, err := os.ReadFile(files[idx])
				if err != nil {
					results[idx] = parsedArtifact{err: err}
					continue
				}
				desc, err := ParseArtifact(data, files[idx])
				results[idx] = parsedArtifact{desc: desc, err: err}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)
	wg.Wait()

	logger.Debug("parsed artifacts", "files", len(files), "workers", numWorkers)
	return results
}
