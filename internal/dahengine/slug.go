package dahengine

import (
	"strings"
	"unicode"

	"github.com/oklog/ulid/v2"

	"github.com/cobwebtools/dah/internal/gitfacade"
)

const slugMaxLen = 40

// slug folds the first line of a commit message into a branch-name
// component: Unicode letters/digits survive (case-folded to lower),
// runs of anything else collapse to a single "-", and the result is
// trimmed and length-capped. Falls back to "work" when empty.
func slug(message string) string {
	firstLine := message
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		firstLine = message[:idx]
	}

	var b strings.Builder
	lastWasDash := false
	for _, r := range firstLine {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			lastWasDash = false
			continue
		}
		if !lastWasDash && b.Len() > 0 {
			b.WriteByte('-')
			lastWasDash = true
		}
	}

	out := strings.Trim(b.String(), "-")
	if len(out) > slugMaxLen {
		out = strings.Trim(out[:slugMaxLen], "-")
	}
	if out == "" {
		return "work"
	}
	return out
}

// synthesizeBranchName builds {prefix}{slug}-dah{ulid}, regenerating
// the ULID up to a handful of times if the result collides with an
// existing ref.
func synthesizeBranchName(f gitfacade.Facade, prefix string) (string, error) {
	message, err := f.HeadCommitMessage()
	if err != nil {
		message = ""
	}

	base := prefix + slug(message) + "-dah"

	for attempt := 0; attempt < 8; attempt++ {
		candidate := base + strings.ToLower(ulid.Make().String())
		exists, err := f.BranchRefExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", errCouldNotSynthesizeName
}
