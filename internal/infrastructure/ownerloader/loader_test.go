package ownerloader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"position_resolver/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
)

func TestParseOwners(t *testing.T) {
	input := `# treasury
0x1111111111111111111111111111111111111111

0x2222222222222222222222222222222222222222
not-an-address
0x1234
0x1111111111111111111111111111111111111111
  0x3333333333333333333333333333333333333333  
`
	got, err := ParseOwners(strings.NewReader(input), logger.NewNop())
	if err != nil {
		t.Fatalf("ParseOwners() error = %v", err)
	}

	want := []common.Address{
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
		common.HexToAddress("0x3333333333333333333333333333333333333333"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseOwners() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadOwners(t *testing.T) {
	path := filepath.Join(t.TempDir(), "owners.txt")
	if err := os.WriteFile(path, []byte("0x1111111111111111111111111111111111111111\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := LoadOwners(path, logger.NewNop())
	if err != nil {
		t.Fatalf("LoadOwners() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(owners) = %d, want 1", len(got))
	}

	if _, err := LoadOwners(filepath.Join(t.TempDir(), "missing.txt"), logger.NewNop()); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
