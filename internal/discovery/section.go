// Package discovery caches and serves the three discovery content buckets
// (trending, movies, tv) with a stale-while-revalidate policy: cache hits are
// served immediately while a background refetch keeps the entry warm, so
// repeat visits never wait on the upstream hunt API.
package discovery

// Section identifies one discovery content bucket.
type Section string

const (
	SectionTrending Section = "trending"
	SectionMovies   Section = "movies"
	SectionTV       Section = "tv"
)

// Sections lists all buckets in rotation order.
var Sections = []Section{SectionTrending, SectionMovies, SectionTV}

// ParseSection maps a string onto a known section.
func ParseSection(s string) (Section, bool) {
	switch Section(s) {
	case SectionTrending, SectionMovies, SectionTV:
		return Section(s), true
	default:
		return "", false
	}
}
