package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/figureboard/figureboard/pkg/core"
)

// BoardExport is the root JSON structure of an export file.
type BoardExport struct {
	ExportedAt time.Time     `json:"exportedAt"`
	CurrentMap string        `json:"currentMap"`
	Figures    []core.Figure `json:"figures"`
	Intents    int           `json:"intents"`
}

func (b *Backend) buildExport() BoardExport {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BoardExport{
		ExportedAt: time.Now().UTC(),
		CurrentMap: b.currentMap,
		Figures:    b.sortedFigures(),
		Intents:    len(b.intents),
	}
}

// exportJSON writes the board to path. A ".gz" suffix gzips the output.
func (b *Backend) exportJSON(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		w = gz
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(b.buildExport()); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// readExport loads an export file. ok is false when the file does not exist.
func readExport(path string) (exp BoardExport, ok bool, err error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return BoardExport{}, false, nil
	}
	if err != nil {
		return BoardExport{}, false, fmt.Errorf("failed to open export file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return BoardExport{}, false, fmt.Errorf("failed to open gzip export: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	if err := json.NewDecoder(r).Decode(&exp); err != nil {
		return BoardExport{}, false, fmt.Errorf("failed to decode export: %w", err)
	}
	return exp, true, nil
}
