package prompts

import (
	"fmt"
	"regexp"
	"strconv"
)

const initialVersion = "v1.0"

var versionPattern = regexp.MustCompile(`^v(\d+)\.(\d+)$`)

// bumpVersion increments the minor numeric suffix of current (e.g.
// "v1.0" -> "v1.1"). An empty current means no active version exists yet,
// so the initial version is returned.
func bumpVersion(current string) (string, error) {
	if current == "" {
		return initialVersion, nil
	}
	m := versionPattern.FindStringSubmatch(current)
	if m == nil {
		return "", fmt.Errorf("malformed prompt version %q, expected vMAJOR.MINOR", current)
	}
	minor, err := strconv.Atoi(m[2])
	if err != nil {
		return "", fmt.Errorf("malformed prompt version %q: %w", current, err)
	}
	return fmt.Sprintf("v%s.%d", m[1], minor+1), nil
}
