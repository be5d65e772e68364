// Package plan implements a file-backed decision oracle. An external
// process drops a YAML action list at a known path; each cycle consumes the
// file once and executes whatever validated against the book. No file, no
// actions.
package plan

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ufotrader/broker"
)

// File watches a single plan file.
type File struct {
	path string
}

// NewFile returns an oracle reading actions from path.
func NewFile(path string) *File {
	return &File{path: path}
}

// document is the on-disk plan shape.
type document struct {
	Actions []broker.Action `yaml:"actions"`
}

// ProposeActions reads and removes the plan file. A missing file yields an
// empty action list; a malformed file is an error and is left in place for
// inspection.
func (f *File) ProposeActions(ctx context.Context, input broker.OracleInput) ([]broker.Action, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read plan: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}

	if err := os.Remove(f.path); err != nil {
		return nil, fmt.Errorf("consume plan: %w", err)
	}
	return doc.Actions, nil
}
