package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Archiver moves processed source files out of the inbox into processed/ or
// failed/ subdirectories. Archiving is best-effort cleanup: move failures are
// logged, never propagated.
type Archiver struct {
	processedDir string
	failedDir    string
}

// NewArchiver creates the processed/ and failed/ subdirectories under root.
func NewArchiver(root string) (*Archiver, error) {
	a := &Archiver{
		processedDir: filepath.Join(root, "processed"),
		failedDir:    filepath.Join(root, "failed"),
	}
	for _, dir := range []string{root, a.processedDir, a.failedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create archive folder %s: %w", dir, err)
		}
	}
	return a, nil
}

// Archive moves the file into the outcome folder, renaming it with a
// timestamp so repeated runs of a same-named file cannot collide.
func (a *Archiver) Archive(path string, success bool) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	name := fmt.Sprintf("%s_%s%s", stem, time.Now().Format("20060102_150405"), ext)

	dest := filepath.Join(a.failedDir, name)
	if success {
		dest = filepath.Join(a.processedDir, name)
	}

	if err := os.Rename(path, dest); err != nil {
		log.Error().Err(err).Str("file", base).Msg("Failed to archive file")
		return
	}
	log.Info().Str("file", base).Str("dest", dest).Msg("Archived file")
}
