// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package version

import (
	"strings"
	"testing"
)

// TestSemVerParsing ensures parsing a semantic version string works as
// expected.
func TestSemVerParsing(t *testing.T) {
	tests := []struct {
		ver     string // semantic version string to parse
		want    semVer // expected parts
		invalid bool   // expected error
	}{{
		ver:  "0.0.4",
		want: semVer{patch: 4},
	}, {
		ver:  "10.20.30",
		want: semVer{major: 10, minor: 20, patch: 30},
	}, {
		ver: "1.1.2-prerelease+meta",
		want: semVer{major: 1, minor: 1, patch: 2, preRelease: "prerelease",
			build: "meta"},
	}, {
		ver:  "1.0.0-alpha.beta.1",
		want: semVer{major: 1, preRelease: "alpha.beta.1"},
	}, {
		ver:  "2.0.0+build.1848",
		want: semVer{major: 2, build: "build.1848"},
	}, {
		ver:     "1.2",
		invalid: true,
	}, {
		ver:     "01.1.1",
		invalid: true,
	}, {
		ver:     "1.2.3-0123",
		invalid: true,
	}, {
		ver:     "1.2.3+meta$",
		invalid: true,
	}, {
		ver:     "99999999999999999999999.0.0",
		invalid: true,
	}}

	for _, test := range tests {
		got, err := parseSemVer(test.ver)
		if test.invalid {
			if err == nil {
				t.Errorf("%q: did not receive expected error", test.ver)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", test.ver, err)
			continue
		}
		if got != test.want {
			t.Errorf("%q: mismatched parts -- got %+v, want %+v", test.ver,
				got, test.want)
		}
	}
}

// TestString ensures the version string starts with the configured version.
func TestString(t *testing.T) {
	if s := String(); !strings.HasPrefix(s, Version) {
		t.Fatalf("version string %q does not start with %q", s, Version)
	}
}
