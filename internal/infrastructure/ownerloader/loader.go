package ownerloader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"position_resolver/internal/app/port"

	"github.com/ethereum/go-ethereum/common"
)

// LoadOwners reads owner addresses from a text file, one per line. Blank lines
// and lines starting with # are ignored; malformed and repeated addresses are
// skipped with a log line.
func LoadOwners(path string, logger port.Logger) ([]common.Address, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open owners file %s: %w", path, err)
	}
	defer file.Close()

	owners, err := ParseOwners(file, logger)
	if err != nil {
		return nil, fmt.Errorf("error scanning owners file %s: %w", path, err)
	}
	logger.Info("Owners loaded successfully from file", "count", len(owners), "path", path)
	return owners, nil
}

// ParseOwners is LoadOwners over an arbitrary reader.
func ParseOwners(r io.Reader, logger port.Logger) ([]common.Address, error) {
	var owners []common.Address
	seen := make(map[common.Address]struct{})

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !common.IsHexAddress(line) {
			logger.Warn("Skipping invalid owner address", "line_number", lineNum, "address", line)
			continue
		}

		owner := common.HexToAddress(line)
		if _, dup := seen[owner]; dup {
			logger.Debug("Skipping duplicate owner address", "line_number", lineNum, "address", owner.Hex())
			continue
		}
		seen[owner] = struct{}{}
		owners = append(owners, owner)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return owners, nil
}
