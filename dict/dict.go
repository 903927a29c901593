// Package dict loads the word pool that boards are dealt from.
package dict

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	katmannames "github.com/katmannames/katmannames"
)

// Load reads a newline-separated word file. If the file doesn't exist, the
// built-in word list is used instead, so a bare checkout still runs.
func Load(file string) ([]string, error) {
	f, err := os.Open(file)
	if os.IsNotExist(err) {
		zap.L().Info("no word file, using built-in words", zap.String("file", file))
		return katmannames.Words, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open word file %q: %w", file, err)
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.ToLower(strings.TrimSpace(sc.Text()))
		if w != "" {
			words = append(words, w)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read word file %q: %w", file, err)
	}

	zap.L().Info("loaded word file", zap.String("file", file), zap.Int("words", len(words)))
	return words, nil
}
