// Package docs renders the node's asciidoc documentation to HTML for the
// /api/docs endpoints. Rendered pages are cached for the process lifetime;
// doc files do not change while the node runs.
package docs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytesparadise/libasciidoc"
	"github.com/bytesparadise/libasciidoc/pkg/configuration"
)

// Service renders and caches documentation pages.
type Service struct {
	docsDir  string
	mu       sync.RWMutex
	rendered map[string]string
}

// NewService creates a renderer over the given docs directory.
func NewService(docsDir string) *Service {
	return &Service{
		docsDir:  docsDir,
		rendered: make(map[string]string),
	}
}

// GetDoc returns the HTML rendering of one asciidoc file, converting it on
// first access.
func (s *Service) GetDoc(ctx context.Context, filename string) (string, error) {
	s.mu.RLock()
	html, ok := s.rendered[filename]
	s.mu.RUnlock()
	if ok {
		return html, nil
	}

	data, err := os.ReadFile(filepath.Join(s.docsDir, filename))
	if err != nil {
		return "", fmt.Errorf("failed to read doc file: %w", err)
	}

	output := bytes.NewBuffer(nil)
	config := configuration.NewConfiguration(
		configuration.WithHeaderFooter(false), // embedded in the caller's layout
		configuration.WithAttribute("toc", "left"),
	)
	if _, err := libasciidoc.Convert(bytes.NewReader(data), output, config); err != nil {
		return "", fmt.Errorf("failed to convert asciidoc: %w", err)
	}

	html = output.String()
	s.mu.Lock()
	s.rendered[filename] = html
	s.mu.Unlock()
	return html, nil
}

// ListDocs names the .adoc files available for rendering.
func (s *Service) ListDocs() ([]string, error) {
	entries, err := os.ReadDir(s.docsDir)
	if err != nil {
		return nil, err
	}

	var docs []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".adoc") {
			docs = append(docs, entry.Name())
		}
	}
	return docs, nil
}
