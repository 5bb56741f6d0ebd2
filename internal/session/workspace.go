// Package session bridges the orchestration layer to the acoustic
// manipulation engine: it owns the per-invocation scoped workspace, persists
// intermediate audio and tier files into it, and drives one engine
// round-trip per transformation stage.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrWorkspace is wrapped by all failures to create, write to, or remove the
// scoped temporary workspace.
var ErrWorkspace = errors.New("session: workspace failure")

// workspaceSubdir is the application subdirectory created under the
// workspace root; individual workspaces live beneath it.
const workspaceSubdir = "revoice"

// Workspace is a scoped temporary directory private to one vocode
// invocation. The path embeds a freshly generated UUID, so concurrently
// running invocations never collide — a load-bearing invariant: sharing a
// workspace between invocations clobbers the engine's intermediate files.
//
// Create at invocation start, remove on every exit path.
type Workspace struct {
	dir string
}

// NewWorkspace creates a collision-free workspace directory under root.
// An empty root selects the system temporary directory.
func NewWorkspace(root string) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, workspaceSubdir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %q: %v", ErrWorkspace, dir, err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory path.
func (w *Workspace) Dir() string { return w.dir }

// Path returns the path of name inside the workspace.
func (w *Workspace) Path(name string) string { return filepath.Join(w.dir, name) }

// Remove deletes the workspace tree. Safe to call on a workspace that was
// already removed.
func (w *Workspace) Remove() error {
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("%w: remove %q: %v", ErrWorkspace, w.dir, err)
	}
	return nil
}
