package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/regtrace/lineage/pkg/common"
)

// Canonical key format: one uppercase letter and six digits, optionally
// followed by a supplement suffix ("/S3", "-S03" or directly appended
// "S003"). Sources are inconsistent about the suffix separator, so all
// three variants resolve to the same key.
var keyPattern = regexp.MustCompile(`^([A-Z]\d{6})(?:[/-]?S(\d{1,4}))?$`)

// ParseKey resolves a raw identifier to its canonical key. A missing
// supplement suffix means supplement 0, the original submission.
func ParseKey(raw string) (common.Key, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	m := keyPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return common.Key{}, fmt.Errorf("identifier %q does not match the canonical key format", raw)
	}

	key := common.Key{Base: m[1]}
	if m[2] != "" {
		seq, err := strconv.Atoi(m[2])
		if err != nil {
			return common.Key{}, fmt.Errorf("identifier %q has an unparsable supplement suffix", raw)
		}
		key.Supplement = seq
	}
	return key, nil
}

// ParseSupplementSeq parses a supplement sequence column value, accepting a
// bare number ("3") or the prefixed form ("S003").
func ParseSupplementSeq(raw string) (int, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	cleaned = strings.TrimPrefix(cleaned, "S")
	if cleaned == "" {
		return 0, fmt.Errorf("empty supplement sequence")
	}
	seq, err := strconv.Atoi(cleaned)
	if err != nil || seq < 0 {
		return 0, fmt.Errorf("supplement sequence %q is not a non-negative number", raw)
	}
	return seq, nil
}
