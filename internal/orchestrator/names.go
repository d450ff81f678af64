package orchestrator

import (
	"math/rand/v2"
	"strings"

	"github.com/QualiSystems/colony-cli/internal/domain"
)

// TempSuffixLength is the number of random lowercase letters closing a temp branch name.
const TempSuffixLength = 10

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz"

// GenerateTempBranchName returns "tmp-colony-<working>-<suffix>". Collisions are not checked.
func GenerateTempBranchName(workingBranch string) string {
	var b strings.Builder
	b.Grow(len(domain.TempBranchPrefix) + len(workingBranch) + 1 + TempSuffixLength)
	b.WriteString(domain.TempBranchPrefix)
	b.WriteString(workingBranch)
	b.WriteByte('-')
	for range TempSuffixLength {
		b.WriteByte(suffixAlphabet[rand.IntN(len(suffixAlphabet))])
	}
	return b.String()
}
