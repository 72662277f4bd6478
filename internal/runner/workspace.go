package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	deploymentDomain "github.com/allisson/provision/internal/deployment/domain"
	apperrors "github.com/allisson/provision/internal/errors"
)

// Workspace renders disposable tool working directories from session
// resource specs. Nothing under the root is authoritative: a workdir is fully
// recreatable from the session at any time.
type Workspace struct {
	root string
}

// NewWorkspace creates a workspace manager rooted at the given directory.
func NewWorkspace(root string) *Workspace {
	return &Workspace{root: root}
}

// Create writes a working directory for the session containing the tool
// configuration generated from its resource specs.
func (w *Workspace) Create(sessionID uuid.UUID, provider string, resources []deploymentDomain.ResourceSpec) (string, error) {
	dir := filepath.Join(w.root, "session-"+sessionID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperrors.Wrap(err, "failed to create workdir")
	}

	config, err := renderConfig(provider, resources)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath.Join(dir, "main.tf.json"), config, 0o644); err != nil {
		return "", apperrors.Wrap(err, "failed to write tool configuration")
	}

	return dir, nil
}

// Remove deletes a working directory and everything in it.
func (w *Workspace) Remove(dir string) error {
	return os.RemoveAll(dir)
}

// renderConfig generates the tool's JSON configuration from resource specs.
// Resources of the same type get stable numbered names.
func renderConfig(provider string, resources []deploymentDomain.ResourceSpec) ([]byte, error) {
	resourceBlocks := make(map[string]map[string]any)
	counters := make(map[string]int)

	for _, resource := range resources {
		typeName := fmt.Sprintf("%s_%s", provider, resource.Type)
		if resourceBlocks[typeName] == nil {
			resourceBlocks[typeName] = make(map[string]any)
		}
		name := fmt.Sprintf("%s_%d", resource.Type, counters[resource.Type])
		counters[resource.Type]++

		config := resource.Config
		if config == nil {
			config = map[string]any{}
		}
		resourceBlocks[typeName][name] = config
	}

	document := map[string]any{
		"provider": map[string]any{provider: map[string]any{}},
		"resource": resourceBlocks,
	}

	rendered, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to render tool configuration")
	}
	return rendered, nil
}
