// Package locator parses the course and usage identifiers carried by launch
// urls and score events.
//
// Two families are understood:
//
//	org/course/run                                  (deprecated course id)
//	course-v1:org+course+run                        (course locator)
//	i4x://org/course/category/name                  (deprecated location)
//	block-v1:org+course+run+type@category+block@name (block usage locator)
package locator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	coursePrefix   = "course-v1:"
	blockPrefix    = "block-v1:"
	locationPrefix = "i4x://"
)

var (
	// ErrInvalidKey is returned when an identifier does not match any known form
	ErrInvalidKey = errors.New("locator: invalid key")

	partPattern = regexp.MustCompile(`^[\w\-~.:]+$`)

	slashUnquoter = strings.NewReplacer(";;", ";", ";_", "/")
)

// CourseKey identifies a course run
type CourseKey struct {
	Org        string
	Course     string
	Run        string
	Deprecated bool
}

// String returns the canonical form the key was parsed from
func (k CourseKey) String() string {
	if k.Deprecated {
		return strings.Join([]string{k.Org, k.Course, k.Run}, "/")
	}

	return coursePrefix + strings.Join([]string{k.Org, k.Course, k.Run}, "+")
}

// UsageKey identifies a piece of content inside a course
type UsageKey struct {
	Course     CourseKey
	BlockType  string
	BlockID    string
	Deprecated bool
}

// String returns the canonical form of the usage key
func (k UsageKey) String() string {
	if k.Deprecated {
		return fmt.Sprintf("%s%s/%s/%s/%s", locationPrefix, k.Course.Org, k.Course.Course, k.BlockType, k.BlockID)
	}

	return fmt.Sprintf("%s%s+%s+%s+type@%s+block@%s", blockPrefix, k.Course.Org, k.Course.Course, k.Course.Run, k.BlockType, k.BlockID)
}

// MapIntoCourse returns a copy of the usage key bound to the given course run
func (k UsageKey) MapIntoCourse(course CourseKey) UsageKey {
	k.Course = course
	return k
}

// ParseCourseKey parses a course id in either the deprecated or the locator form
func ParseCourseKey(s string) (CourseKey, error) {
	if strings.HasPrefix(s, coursePrefix) {
		parts := strings.Split(strings.TrimPrefix(s, coursePrefix), "+")
		if len(parts) != 3 || !validParts(parts...) {
			return CourseKey{}, fmt.Errorf("%w: course %q", ErrInvalidKey, s)
		}

		return CourseKey{Org: parts[0], Course: parts[1], Run: parts[2]}, nil
	}

	parts := strings.Split(s, "/")
	if len(parts) != 3 || !validParts(parts...) {
		return CourseKey{}, fmt.Errorf("%w: course %q", ErrInvalidKey, s)
	}

	return CourseKey{Org: parts[0], Course: parts[1], Run: parts[2], Deprecated: true}, nil
}

// ParseUsageKey parses a usage id. Slashes escaped as ";_" in urls are
// restored before parsing.
func ParseUsageKey(s string) (UsageKey, error) {
	s = slashUnquoter.Replace(s)

	switch {
	case strings.HasPrefix(s, locationPrefix):
		parts := strings.Split(strings.TrimPrefix(s, locationPrefix), "/")
		if len(parts) != 4 {
			break
		}

		// a trailing @revision is not part of the identity
		if i := strings.IndexByte(parts[3], '@'); i >= 0 {
			parts[3] = parts[3][:i]
		}

		if !validParts(parts...) {
			break
		}

		return UsageKey{
			Course:     CourseKey{Org: parts[0], Course: parts[1], Deprecated: true},
			BlockType:  parts[2],
			BlockID:    parts[3],
			Deprecated: true,
		}, nil
	case strings.HasPrefix(s, blockPrefix):
		parts := strings.Split(strings.TrimPrefix(s, blockPrefix), "+")
		if len(parts) != 5 ||
			!strings.HasPrefix(parts[3], "type@") ||
			!strings.HasPrefix(parts[4], "block@") {
			break
		}

		typ := strings.TrimPrefix(parts[3], "type@")
		block := strings.TrimPrefix(parts[4], "block@")
		if !validParts(parts[0], parts[1], parts[2], typ, block) {
			break
		}

		return UsageKey{
			Course:    CourseKey{Org: parts[0], Course: parts[1], Run: parts[2]},
			BlockType: typ,
			BlockID:   block,
		}, nil
	}

	return UsageKey{}, fmt.Errorf("%w: usage %q", ErrInvalidKey, s)
}

// Parse parses a course id and a usage id and maps the usage into the course
func Parse(courseID, usageID string) (CourseKey, UsageKey, error) {
	course, err := ParseCourseKey(courseID)
	if err != nil {
		return CourseKey{}, UsageKey{}, err
	}

	usage, err := ParseUsageKey(usageID)
	if err != nil {
		return CourseKey{}, UsageKey{}, err
	}

	if usage.Course.Org != course.Org || usage.Course.Course != course.Course {
		return CourseKey{}, UsageKey{}, fmt.Errorf("%w: usage %q is not part of course %q", ErrInvalidKey, usageID, courseID)
	}

	return course, usage.MapIntoCourse(course), nil
}

func validParts(parts ...string) bool {
	for _, p := range parts {
		if !partPattern.MatchString(p) {
			return false
		}
	}

	return true
}
