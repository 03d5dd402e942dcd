package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Manifest describes one build for downstream deploy tooling. Written next
// to the artifacts as manifest.json.
type Manifest struct {
	BuildID     string    `json:"build_id"`
	Entry       string    `json:"entry,omitempty"`
	ServerBytes int       `json:"server_bytes"`
	ClientBytes int       `json:"client_bytes"`
	Tools       []string  `json:"tools"`
	Findings    []string  `json:"findings,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Artifact file names inside the out directory.
const (
	ServerFileName   = "server.js"
	ClientFileName   = "client.js"
	ManifestFileName = "manifest.json"
)

// WriteTo writes both artifacts and the manifest under dir, creating it as
// needed.
func (b *BuildResult) WriteTo(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create out dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ServerFileName), []byte(b.Server.Code), 0o644); err != nil {
		return fmt.Errorf("write server artifact: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ClientFileName), []byte(b.Client.Code), 0o644); err != nil {
		return fmt.Errorf("write client artifact: %w", err)
	}

	m := Manifest{
		BuildID:     b.ID,
		Entry:       b.Entry,
		ServerBytes: len(b.Server.Code),
		ClientBytes: len(b.Client.Code),
		Tools:       b.Module.ToolNames(),
		Findings:    b.Findings,
		CreatedAt:   time.Now().UTC(),
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
