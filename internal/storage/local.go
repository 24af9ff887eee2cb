package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// LocalStorage handles saving summaries to the local filesystem
type LocalStorage struct {
	outputDir string
	now       func() time.Time
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
		now:       time.Now,
	}
}

// SaveSummary writes the summary JSON and the plain transcript under a dated
// directory and returns the JSON path.
func (ls *LocalStorage) SaveSummary(rec *Record) (string, error) {
	// outputs/2025/01/23/
	now := ls.now()
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %w", err)
	}

	// 20250123_143022_garlic_bread
	base := fmt.Sprintf("%s_%s", now.Format("20060102_150405"), sanitizeFilename(rec.DisplayName()))
	jsonPath := filepath.Join(dateDir, base+".json")
	txtPath := filepath.Join(dateDir, base+"_transcript.txt")

	if err := os.WriteFile(txtPath, []byte(rec.Transcript), 0644); err != nil {
		return "", fmt.Errorf("failed to save transcript: %w", err)
	}

	payload, err := rec.ExportJSON()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(jsonPath, payload, 0644); err != nil {
		return "", fmt.Errorf("failed to save summary: %w", err)
	}

	return jsonPath, nil
}

// ReadSummary loads a previously saved summary JSON
func (ls *LocalStorage) ReadSummary(path string) (json.RawMessage, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}
	return json.RawMessage(b), nil
}

// sanitizeFilename keeps letters, digits, dash and underscore
func sanitizeFilename(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	result := strings.Trim(b.String(), "_")
	if result == "" {
		result = "summary"
	}
	if r := []rune(result); len(r) > 80 {
		result = string(r[:80])
	}
	return result
}
