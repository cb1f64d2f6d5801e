package fileops

import (
	"fmt"
	"os"
	"path/filepath"
)

// workspaceDirs is the layout a research run expects under its root.
var workspaceDirs = []string{
	"output",
	"research_dir",
	"research_dir/src",
	"research_dir/tex",
	"state_saves",
	"logs",
	"experiments",
	"temp",
}

// Workspace manages the on-disk layout of a research run.
type Workspace struct {
	root string
	ops  *FileOps
}

func NewWorkspace(root string, ops *FileOps) *Workspace {
	return &Workspace{root: root, ops: ops}
}

func (w *Workspace) Root() string {
	return w.root
}

// Init creates every workspace directory that is missing.
func (w *Workspace) Init() error {
	for _, dir := range workspaceDirs {
		if err := w.ops.EnsureDir(filepath.Join(w.root, dir)); err != nil {
			return err
		}
	}
	return nil
}

// Path resolves a subpath inside the workspace.
func (w *Workspace) Path(subpath string) string {
	return filepath.Join(w.root, subpath)
}

// CleanupTemp empties the temp directory, recreating it afterwards.
func (w *Workspace) CleanupTemp() error {
	temp := filepath.Join(w.root, "temp")
	if _, err := os.Stat(temp); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(temp); err != nil {
		return fmt.Errorf("clean temp directory: %w", err)
	}
	return w.ops.EnsureDir(temp)
}
