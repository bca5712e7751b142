package scanner

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// preReleaseRe matches the trailing pre-release component of a version
// label, e.g. the ".0a1" of "1.0.0.0a1". Recognized markers are a (alpha),
// b (beta) and rc (release candidate).
var preReleaseRe = regexp.MustCompile(`\.(\d+(?:[ab]|rc)+\d*)$`)

func isPreRelease(version string) bool {
	return preReleaseRe.MatchString(version)
}

// stripLastSegment drops the final dot-separated segment of a label:
// "1.0.0.0rc1" becomes "1.0.0".
func stripLastSegment(version string) string {
	parts := strings.Split(version, ".")
	return strings.Join(parts[:len(parts)-1], ".")
}

// collapsePreReleases folds each pre-release bucket into the bucket of its
// final release, but only when that final release was actually tagged.
// An unreleased pre-release keeps its own bucket. Buckets are re-sorted
// later, so only membership matters here.
func collapsePreReleases(buckets map[string][]NoteRef, versionsByDate []string, logger *zap.Logger) map[string][]NoteRef {
	collapsed := make(map[string][]NoteRef, len(buckets))
	for _, version := range versionsByDate {
		if _, ok := buckets[version]; !ok {
			// No notes attached, nothing to collapse.
			continue
		}
		canonical := version
		if m := preReleaseRe.FindStringSubmatch(version); m != nil {
			stripped := strings.TrimRight(version[:len(version)-len(m[1])], ".")
			if contains(versionsByDate, stripped) {
				logger.Debug("combining pre-release",
					zap.String("version", version),
					zap.String("into", stripped))
				canonical = stripped
			}
		}
		collapsed[canonical] = append(collapsed[canonical], buckets[version]...)
	}
	return collapsed
}
