// Package location parses caller-supplied document locations and derives
// the cache identity and object-store spellings for them.
package location

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"chapterqa/internal/domain"
)

const (
	pdfExt       = ".pdf"
	maxSlugRunes = 96
)

var (
	schemes     = map[string]struct{}{"store": {}, "gs": {}}
	containerRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	extRe       = regexp.MustCompile(`\.[A-Za-z]{2,5}$`)
	spaceRunRe  = regexp.MustCompile(`[\s_]+`)
	unsafeRe    = regexp.MustCompile(`[^a-z0-9._()-]+`)
)

// Parse validates a location such as "store://bucketA/Math/chapter (2).pdf".
// The path must be nested (at least one directory) and end in a file name
// that is either a .pdf or has no extension.
func Parse(raw string) (domain.Location, error) {
	raw = strings.TrimSpace(raw)
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return domain.Location{}, fmt.Errorf("%w: %q has no scheme", domain.ErrInvalidLocation, raw)
	}
	scheme = strings.ToLower(scheme)
	if _, ok := schemes[scheme]; !ok {
		return domain.Location{}, fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidLocation, scheme)
	}
	container, path, _ := strings.Cut(rest, "/")
	if !containerRe.MatchString(container) {
		return domain.Location{}, fmt.Errorf("%w: bad container %q", domain.ErrInvalidLocation, container)
	}
	segments := splitSegments(path)
	if len(segments) < 2 {
		return domain.Location{}, fmt.Errorf("%w: path %q must include a directory and a document name", domain.ErrInvalidLocation, path)
	}
	for _, s := range segments {
		if s == "." || s == ".." {
			return domain.Location{}, fmt.Errorf("%w: path %q contains relative segments", domain.ErrInvalidLocation, path)
		}
	}
	name := segments[len(segments)-1]
	if ext := extRe.FindString(name); ext != "" && !strings.EqualFold(ext, pdfExt) {
		return domain.Location{}, fmt.Errorf("%w: %q is not a PDF document name", domain.ErrInvalidLocation, name)
	}
	return domain.Location{Scheme: scheme, Container: container, Path: strings.Join(segments, "/")}, nil
}

// Canonical normalizes a human-entered path: trimmed segments, lower case,
// whitespace and underscore runs collapsed to a single underscore and a
// .pdf suffix. Paths differing only in those respects share one canonical form.
func Canonical(path string) string {
	segments := splitSegments(path)
	for i, s := range segments {
		s = strings.ToLower(s)
		segments[i] = spaceRunRe.ReplaceAllString(s, "_")
	}
	out := strings.Join(segments, "/")
	if out != "" && !strings.HasSuffix(out, pdfExt) {
		out += pdfExt
	}
	return out
}

// Identity derives the cache key of a location. The readable prefix is
// filesystem safe; the hash suffix is computed over the canonical form
// before any "/" substitution, so distinct canonical paths never collide.
// Paths that differ only in case, spacing or a missing .pdf suffix share
// one identity and therefore one cached chunk set.
func Identity(loc domain.Location) domain.DocumentIdentity {
	canon := Canonical(loc.Path)
	sum := sha256.Sum256([]byte(loc.Container + "\x00" + canon))
	slug := strings.ToLower(loc.Container) + "_" + strings.ReplaceAll(canon, "/", "_")
	slug = unsafeRe.ReplaceAllString(slug, "-")
	if r := []rune(slug); len(r) > maxSlugRunes {
		slug = string(r[:maxSlugRunes])
	}
	return domain.DocumentIdentity(slug + "-" + hex.EncodeToString(sum[:8]))
}

// Variants lists the object-store spellings to try for path, in priority
// order, without duplicates.
func Variants(path string) []string {
	candidates := []string{path}
	if !strings.HasSuffix(strings.ToLower(path), pdfExt) {
		candidates = append(candidates, path+pdfExt)
	}
	candidates = append(candidates,
		strings.ReplaceAll(path, " ", "_"),
		strings.ReplaceAll(path, "Chapter ", "Chapter_"),
		strings.ReplaceAll(path, "Class ", "class_"),
		strings.ToLower(path),
		strings.ToUpper(path),
	)
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func splitSegments(path string) []string {
	raw := strings.Split(path, "/")
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimFunc(s, unicode.IsSpace)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
