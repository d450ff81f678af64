package orchestrator

import (
	"strings"
	"testing"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestGenerateTempBranchName(t *testing.T) {
	t.Run("Should prefix the working branch and append a lowercase suffix", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			working := rapid.StringMatching(`[a-zA-Z0-9._/-]{1,40}`).Draw(t, "working")
			name := GenerateTempBranchName(working)
			if !strings.HasPrefix(name, domain.TempBranchPrefix+working+"-") {
				t.Fatalf("unexpected prefix in %q", name)
			}
			suffix := name[len(domain.TempBranchPrefix+working+"-"):]
			if len(suffix) != TempSuffixLength {
				t.Fatalf("suffix %q has length %d", suffix, len(suffix))
			}
			for _, r := range suffix {
				if r < 'a' || r > 'z' {
					t.Fatalf("suffix %q contains %q", suffix, r)
				}
			}
			if !domain.IsTempBranchName(name) {
				t.Fatalf("%q is not recognized as a temp branch", name)
			}
		})
	})

	t.Run("Should not repeat across many generations", func(t *testing.T) {
		seen := make(map[string]struct{}, 1000)
		for range 1000 {
			seen[GenerateTempBranchName("main")] = struct{}{}
		}
		assert.Len(t, seen, 1000)
	})

	t.Run("Should produce valid branch names", func(t *testing.T) {
		assert.NoError(t, ValidateBranchName(GenerateTempBranchName("feature/login")))
	})
}
