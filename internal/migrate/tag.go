package migrate

import (
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/schemadrift/schemadrift/internal/drifterr"
)

// TagTimeLayout is the 14-digit UTC prefix every tag starts with. Lexical
// order of tags equals creation order at one-second resolution.
const TagTimeLayout = "20060102150405"

var tagPattern = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)$`)

var suffixAdjectives = []string{
	"amber", "bold", "brave", "calm", "clever", "crimson", "curious",
	"eager", "fierce", "gentle", "hollow", "keen", "lucky", "mellow",
	"misty", "noble", "pale", "quiet", "rapid", "rustic", "silent",
	"solid", "swift", "vivid", "wild", "witty",
}

var suffixNouns = []string{
	"badger", "bison", "condor", "coyote", "crane", "falcon", "ferret",
	"gecko", "heron", "ibex", "jackal", "lemur", "lynx", "marmot",
	"marten", "osprey", "otter", "owl", "panther", "puffin", "raven",
	"salmon", "stoat", "tapir", "walrus", "wren",
}

// NewTag derives a tag from the given moment: the UTC timestamp prefix
// plus a readable two-word suffix.
func NewTag(at time.Time, suffix string) string {
	return at.UTC().Format(TagTimeLayout) + "_" + suffix
}

// RandomSuffix picks a fresh adjective_noun pair.
func RandomSuffix() string {
	return suffixAdjectives[rand.Intn(len(suffixAdjectives))] + "_" + suffixNouns[rand.Intn(len(suffixNouns))]
}

// SanitizeName turns an operator-supplied migration name into the suffix
// grammar: lowercase, runs of anything else collapsed to underscores.
func SanitizeName(name string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(name) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// ParseTag validates a unit directory name against the tag grammar and
// returns the timestamp it encodes. A directory that does not parse is an
// error, never silently skipped: an unordered entry would break every
// downstream ordering guarantee.
func ParseTag(tag string) (time.Time, error) {
	match := tagPattern.FindStringSubmatch(tag)
	if match == nil {
		return time.Time{}, drifterr.WrapTagError(tag, "expected 14-digit timestamp prefix and suffix")
	}
	at, err := time.ParseInLocation(TagTimeLayout, match[1], time.UTC)
	if err != nil {
		return time.Time{}, drifterr.WrapTagError(tag, "timestamp prefix is not a valid moment")
	}
	return at, nil
}
