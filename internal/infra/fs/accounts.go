package fs

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	logging "polarise-swapper/internal/infra/log"

	"go.uber.org/zap"
)

// DefaultAccountsFile holds one private key per line
const DefaultAccountsFile = "accounts.txt"

// LoadPrivateKeys reads the accounts file. Lines are trimmed; blank lines and # comments are skipped.
// Keys are not validated here, a bad key fails its own wallet turn.
func LoadPrivateKeys(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts file: %w", err)
	}
	defer file.Close()

	var keys []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}

	logging.LogDebug("Loaded accounts file", zap.String("file", filePath), zap.Int("count", len(keys)))
	return keys, nil
}
