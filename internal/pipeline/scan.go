package pipeline

import (
	"context"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/tphakala/roofsolar/internal/building"
	"github.com/tphakala/roofsolar/internal/errors"
	"github.com/tphakala/roofsolar/internal/resolver"
)

// FindModels walks root recursively and returns every model document path,
// sorted.
func FindModels(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && building.IsModelFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(err).
			Component("pipeline").
			Category(errors.CategoryFileIO).
			FileContext(root).
			Context("operation", "find_models").
			Build()
	}
	slices.Sort(paths)
	return paths, nil
}

// ScanResult is the outcome of one batch scan.
type ScanResult struct {
	Root    string    `json:"root"`
	Results []*Result `json:"results"`
	Failed  int       `json:"failed"`
}

// Scan analyses every model document under root, one at a time. A file that
// fails keeps its error on its result and the scan moves on. Only a walk
// failure or cancellation of ctx stops the scan early.
func (p *Pipeline) Scan(ctx context.Context, root string, opts Options) (*ScanResult, error) {
	paths, err := FindModels(root)
	if err != nil {
		return nil, err
	}
	getLogger().Info("scan started", "root", root, "files", len(paths))

	out := &ScanResult{Root: root, Results: make([]*Result, 0, len(paths))}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return out, errors.New(err).
				Component("pipeline").
				Category(errors.CategoryCancellation).
				Context("completed", len(out.Results)).
				Build()
		}

		fileOpts := opts
		fileOpts.ProjectName = "" // each file takes its directory name
		res, err := p.RunFile(ctx, path, fileOpts)
		if res == nil {
			res = &Result{
				ProjectName: filepath.Base(filepath.Dir(path)),
				File:        filepath.Base(path),
				Error:       err.Error(),
			}
			getLogger().Error("cannot open model", "path", path, "error", err)
		}
		if err != nil {
			out.Failed++
		}
		out.Results = append(out.Results, res)
	}

	getLogger().Info("scan finished", "root", root, "files", len(paths), "failed", out.Failed)
	return out, nil
}

// ScanMetadata extracts the metadata record of every model document under
// root. Files that cannot be opened yield a record carrying the error.
func ScanMetadata(root string, res *resolver.Resolver) ([]resolver.Metadata, error) {
	paths, err := FindModels(root)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = resolver.New(resolver.DefaultAliases())
	}
	records := make([]resolver.Metadata, 0, len(paths))
	for _, path := range paths {
		md, _ := res.ExtractFile(path)
		records = append(records, md)
	}
	return records, nil
}
