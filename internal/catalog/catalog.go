// Package catalog filters and orders course and certificate listings, and
// carries the built-in seed catalog.
package catalog

import (
	_ "embed"
	"fmt"
	"math"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"codemaster-service/internal/domain"
)

// Sort keys accepted by SortCourses.
const (
	SortPopularity = "popularity"
	SortRating     = "rating"
	SortDuration   = "duration"
	SortNewest     = "newest"
)

// FilterAll disables category/level filtering.
const FilterAll = "all"

// Query narrows a course listing.
type Query struct {
	Search string
	Filter string
}

// Category is one entry of the filter bar.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// FilterCourses keeps courses whose title or description contains Search
// (case-insensitive) and whose category or level matches Filter.
// The result is never nil and the input is not modified.
func FilterCourses(courses []domain.Course, q Query) []domain.Course {
	search := strings.ToLower(q.Search)
	filter := strings.ToLower(strings.TrimSpace(q.Filter))

	out := make([]domain.Course, 0, len(courses))
	for _, c := range courses {
		if !matchesSearch(c, search) || !matchesFilter(c, filter) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchesSearch(c domain.Course, search string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Title), search) ||
		strings.Contains(strings.ToLower(c.Description), search)
}

func matchesFilter(c domain.Course, filter string) bool {
	if filter == "" || filter == FilterAll {
		return true
	}
	return strings.ToLower(c.Category) == filter || strings.ToLower(c.Level) == filter
}

// SortCourses returns a sorted copy. Unknown keys keep the input order.
func SortCourses(courses []domain.Course, key string) []domain.Course {
	out := make([]domain.Course, len(courses))
	copy(out, courses)

	var cmp func(a, b domain.Course) int
	switch key {
	case SortPopularity:
		cmp = func(a, b domain.Course) int { return b.Students - a.Students }
	case SortRating:
		cmp = func(a, b domain.Course) int { return compareFloat(b.Rating, a.Rating) }
	case SortDuration:
		cmp = func(a, b domain.Course) int { return strings.Compare(a.Duration, b.Duration) }
	case SortNewest:
		cmp = func(a, b domain.Course) int { return strings.Compare(b.ID, a.ID) }
	default:
		return out
	}
	slices.SortStableFunc(out, cmp)
	return out
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Categories counts courses per filter-bar entry.
func Categories(courses []domain.Course) []Category {
	count := func(match func(domain.Course) bool) int {
		n := 0
		for _, c := range courses {
			if match(c) {
				n++
			}
		}
		return n
	}
	byCategory := func(id string) func(domain.Course) bool {
		return func(c domain.Course) bool { return c.Category == id }
	}
	byLevel := func(level string) func(domain.Course) bool {
		return func(c domain.Course) bool { return strings.EqualFold(c.Level, level) }
	}
	return []Category{
		{ID: FilterAll, Name: "All Courses", Count: len(courses)},
		{ID: "web", Name: "Web Development", Count: count(byCategory("web"))},
		{ID: "programming", Name: "Programming", Count: count(byCategory("programming"))},
		{ID: "intermediate", Name: "Intermediate", Count: count(byLevel("intermediate"))},
		{ID: "beginner", Name: "Beginner", Count: count(byLevel("beginner"))},
	}
}

// FilterCertificates matches search against the course name
// (case-insensitive) and filter as a substring of the course id.
func FilterCertificates(certs []domain.Certificate, search, filter string) []domain.Certificate {
	search = strings.ToLower(search)
	out := make([]domain.Certificate, 0, len(certs))
	for _, c := range certs {
		if search != "" && !strings.Contains(strings.ToLower(c.CourseName), search) {
			continue
		}
		if filter != "" && filter != FilterAll && !strings.Contains(c.CourseID, filter) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// CertificateStats summarises a learner's certificates.
type CertificateStats struct {
	Count        int `json:"count"`
	AverageScore int `json:"averageScore"`
	BestScore    int `json:"bestScore"`
}

func SummarizeCertificates(certs []domain.Certificate) CertificateStats {
	stats := CertificateStats{Count: len(certs)}
	if len(certs) == 0 {
		return stats
	}
	total := 0
	for _, c := range certs {
		total += c.Score
		stats.BestScore = max(stats.BestScore, c.Score)
	}
	stats.AverageScore = int(math.Round(float64(total) / float64(len(certs))))
	return stats
}

//go:embed courses.yaml
var seedYAML []byte

// Seed returns the built-in course catalog.
func Seed() ([]domain.Course, error) {
	return Parse(seedYAML)
}

// Parse decodes a YAML catalog document and validates every quiz.
func Parse(data []byte) ([]domain.Course, error) {
	var doc struct {
		Courses []domain.Course `yaml:"courses"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for _, c := range doc.Courses {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	if doc.Courses == nil {
		doc.Courses = []domain.Course{}
	}
	return doc.Courses, nil
}
