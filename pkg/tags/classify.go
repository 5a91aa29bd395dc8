// Package tags classifies tag names by a project's release naming convention
// and orders the accepted tags along the project's release history.
package tags

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Kind int

const (
	Unclassified Kind = iota
	PreRelease
	FullRelease
)

func (k Kind) String() string {
	switch k {
	case PreRelease:
		return "pre_release"
	case FullRelease:
		return "full_release"
	default:
		return "unclassified"
	}
}

// Rules is the configurable form of a naming convention.
type Rules struct {
	ReleasePattern         string   `yaml:"release_pattern"`
	PreReleaseQualifiers   []string `yaml:"pre_release_qualifiers"`
	EpochPrecedence        []string `yaml:"epoch_precedence"`
	PreReleasesAreReleases bool     `yaml:"pre_releases_are_releases"`
}

var builtin = map[string]Rules{
	// Linus' tree: v2.6.13-rc7, v2.6.13, v3.0, v4.1-rc8. Release candidates are
	// what mainline reports as its release tags.
	"linux": {
		ReleasePattern:         `^v\d+\.\d+(\.\d+)*(-rc\d+)?$`,
		PreReleaseQualifiers:   []string{`-rc\d+$`},
		EpochPrecedence:        []string{"v2.6", "v3.", "v4.", "v5.", "v6."},
		PreReleasesAreReleases: true,
	},
	// gcc-4_9_2-release, gcc-5_1_0-release. Branchpoints and prereleases do not match.
	"gcc": {
		ReleasePattern: `^gcc-\d+(_\d+)+-release$`,
	},
	// Plain semver tags as used by most GitHub projects.
	"semver": {
		ReleasePattern:       `^v?\d+\.\d+\.\d+(-[0-9A-Za-z.]+)?$`,
		PreReleaseQualifiers: []string{`-[0-9A-Za-z.]+$`},
	},
}

// Builtin returns the rules shipped for a well-known project.
func Builtin(name string) (Rules, bool) {
	r, ok := builtin[name]
	return r, ok
}

// BuiltinNames lists the projects with shipped rules.
func BuiltinNames() []string {
	return []string{"gcc", "linux", "semver"}
}

// Convention is a compiled set of naming rules.
type Convention struct {
	Name                   string
	ReleasePattern         *regexp.Regexp
	PreReleaseQualifiers   []*regexp.Regexp
	EpochPrecedence        []string
	PreReleasesAreReleases bool
}

var digits = regexp.MustCompile(`\d+`)

// Compile validates rules and returns the convention.
func Compile(name string, r Rules) (*Convention, error) {
	if r.ReleasePattern == "" {
		return nil, fmt.Errorf("convention %s: release_pattern is required", name)
	}
	pattern, err := regexp.Compile(r.ReleasePattern)
	if err != nil {
		return nil, fmt.Errorf("convention %s: release_pattern: %w", name, err)
	}

	c := &Convention{
		Name:                   name,
		ReleasePattern:         pattern,
		EpochPrecedence:        append([]string(nil), r.EpochPrecedence...),
		PreReleasesAreReleases: r.PreReleasesAreReleases,
	}
	for _, q := range r.PreReleaseQualifiers {
		re, err := regexp.Compile(q)
		if err != nil {
			return nil, fmt.Errorf("convention %s: pre_release_qualifiers %q: %w", name, q, err)
		}
		c.PreReleaseQualifiers = append(c.PreReleaseQualifiers, re)
	}
	return c, nil
}

// MustCompileBuiltin compiles one of the shipped conventions and panics if it is unknown.
func MustCompileBuiltin(name string) *Convention {
	r, ok := Builtin(name)
	if !ok {
		panic("tags: no builtin convention " + name)
	}
	c, err := Compile(name, r)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify never fails: names outside the convention are Unclassified.
func (c *Convention) Classify(name string) Kind {
	if !c.ReleasePattern.MatchString(name) {
		return Unclassified
	}
	if c.qualifier(name) != nil {
		return PreRelease
	}
	return FullRelease
}

// IsRelease reports whether tags of kind k count as release tags.
func (c *Convention) IsRelease(k Kind) bool {
	switch k {
	case FullRelease:
		return true
	case PreRelease:
		return c.PreReleasesAreReleases
	default:
		return false
	}
}

func (c *Convention) qualifier(name string) []int {
	for _, q := range c.PreReleaseQualifiers {
		if loc := q.FindStringIndex(name); loc != nil {
			return loc
		}
	}
	return nil
}

// epoch returns the index of the first declared epoch prefix the name carries.
// Names outside every declared epoch sort after all of them.
func (c *Convention) epoch(name string) int {
	for i, prefix := range c.EpochPrecedence {
		if strings.HasPrefix(name, prefix) {
			return i
		}
	}
	return len(c.EpochPrecedence)
}

type versionKey struct {
	numbers    []int
	pre        bool
	preNumbers []int
}

func (c *Convention) versionKey(name string) versionKey {
	var k versionKey
	base := name
	if loc := c.qualifier(name); loc != nil {
		k.pre = true
		k.preNumbers = numbersIn(name[loc[0]:loc[1]])
		base = name[:loc[0]] + name[loc[1]:]
	}
	k.numbers = numbersIn(base)
	return k
}

func numbersIn(s string) []int {
	var out []int
	for _, m := range digits.FindAllString(s, -1) {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// compareNumbers compares two version number lists, treating missing trailing components as 0.
func compareNumbers(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

// compareVersions orders pre-releases before the matching full release.
func compareVersions(a, b versionKey) int {
	if c := compareNumbers(a.numbers, b.numbers); c != 0 {
		return c
	}
	switch {
	case a.pre && !b.pre:
		return -1
	case !a.pre && b.pre:
		return 1
	case a.pre && b.pre:
		return compareNumbers(a.preNumbers, b.preNumbers)
	}
	return 0
}
