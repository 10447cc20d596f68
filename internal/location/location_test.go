package location

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chapterqa/internal/domain"
)

func TestParse_Valid(t *testing.T) {
	loc, err := Parse("store://bucketA/Math/chapter (2).pdf")
	require.NoError(t, err)
	assert.Equal(t, "store", loc.Scheme)
	assert.Equal(t, "bucketA", loc.Container)
	assert.Equal(t, "Math/chapter (2).pdf", loc.Path)

	loc, err = Parse("  gs://ncert-books/CBSE/Class 10/Science/Chapter 1  ")
	require.NoError(t, err)
	assert.Equal(t, "ncert-books", loc.Container)
	assert.Equal(t, "CBSE/Class 10/Science/Chapter 1", loc.Path)
	assert.Equal(t, "gs://ncert-books/CBSE/Class 10/Science/Chapter 1", loc.String())
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"no scheme":        "bucketA/Math/chapter.pdf",
		"unknown scheme":   "ftp://bucketA/Math/chapter.pdf",
		"unserved scheme":  "s3://bucketA/Math/chapter.pdf",
		"no container":     "store:///Math/chapter.pdf",
		"not nested":       "store://bucketA/chapter.pdf",
		"no path":          "store://bucketA",
		"wrong extension":  "store://bucketA/Math/chapter.docx",
		"relative segment": "store://bucketA/Math/../chapter.pdf",
		"empty":            "",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidLocation)
		})
	}
}

func TestParse_NumericSuffixIsNotExtension(t *testing.T) {
	_, err := Parse("store://bucketA/Math/Chapter 1.5")
	assert.NoError(t, err)
}

func TestCanonical_SpellingTolerance(t *testing.T) {
	want := Canonical("Class 10/Chapter 1.pdf")
	for _, p := range []string{
		"Class 10/Chapter 1",
		"class_10/chapter_1.pdf",
		"CLASS 10/CHAPTER 1.PDF",
		"Class  10 / Chapter\t1",
		"/Class 10//Chapter 1/",
	} {
		assert.Equal(t, want, Canonical(p), p)
	}
	assert.Equal(t, "class_10/chapter_1.pdf", want)
}

func TestIdentity_StableAndSpellingTolerant(t *testing.T) {
	a := Identity(domain.Location{Container: "bucketA", Path: "Math/Chapter 2.pdf"})
	b := Identity(domain.Location{Container: "bucketA", Path: "Math/chapter_2"})
	assert.Equal(t, a, b)
	assert.Equal(t, a, Identity(domain.Location{Container: "bucketA", Path: "Math/Chapter 2.pdf"}))
}

func TestIdentity_CaseOnlyDifferencesShareOneEntry(t *testing.T) {
	upper := Identity(domain.Location{Container: "b", Path: "Math/Notes.pdf"})
	lower := Identity(domain.Location{Container: "b", Path: "math/notes"})
	assert.Equal(t, upper, lower)

	assert.NotEqual(t, upper, Identity(domain.Location{Container: "c", Path: "Math/Notes.pdf"}))
	assert.NotEqual(t, upper, Identity(domain.Location{Container: "b", Path: "Math/Notes 2.pdf"}))
}

func TestIdentity_FilesystemSafe(t *testing.T) {
	id := string(Identity(domain.Location{Container: "bucketA", Path: "Math/chapter (2).pdf"}))
	assert.NotContains(t, id, "/")
	assert.NotContains(t, id, " ")
	assert.True(t, strings.HasPrefix(id, "bucketa_math_chapter_(2).pdf-"), id)
	assert.Len(t, strings.TrimPrefix(id, "bucketa_math_chapter_(2).pdf-"), 16)
}

func TestIdentity_SlashUnderscoreDoNotCollide(t *testing.T) {
	a := Identity(domain.Location{Container: "b", Path: "x/y_z.pdf"})
	b := Identity(domain.Location{Container: "b", Path: "x_y/z.pdf"})
	assert.NotEqual(t, a, b)

	c := Identity(domain.Location{Container: "b_x", Path: "y/z.pdf"})
	d := Identity(domain.Location{Container: "b", Path: "x/y/z.pdf"})
	assert.NotEqual(t, c, d)
}

func TestVariants_OrderAndDedup(t *testing.T) {
	got := Variants("Class 10/Chapter 1")
	assert.Equal(t, []string{
		"Class 10/Chapter 1",
		"Class 10/Chapter 1.pdf",
		"Class_10/Chapter_1",
		"Class 10/Chapter_1",
		"class_10/Chapter 1",
		"class 10/chapter 1",
		"CLASS 10/CHAPTER 1",
	}, got)

	got = Variants("math/ch1.pdf")
	assert.Equal(t, []string{"math/ch1.pdf", "MATH/CH1.PDF"}, got)
}
