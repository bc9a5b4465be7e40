// Package buildtime tells which release of confix is running.
//
// The release build sets the version and the revision with
//
//	-ldflags "-X github.com/confixenvios/confixenvios-sub003/pkg/buildtime.version=v1.2.3 -X github.com/confixenvios/confixenvios-sub003/pkg/buildtime.revision=abcdef"
//
// Without them, the files VERSION and revision next to this one are used,
// and the VCS revision recorded by the go command after that.
package buildtime

import (
	_ "embed"
	"runtime/debug"
	"strings"
	"sync"
)

var (
	version  string
	revision string
)

//go:embed VERSION
var versionFile string

//go:embed revision
var revisionFile string

// placeholder written to the revision file of source trees.
const unstamped = "dev"

var stamp = sync.OnceValues(readStamp)

func readStamp() (string, string) {
	v := firstOf(version, versionFile)
	if v == "" {
		v = "0.0.0"
	}

	r := firstOf(revision, revisionFile)
	if r == "" || r == unstamped {
		if vcs := vcsRevision(); vcs != "" {
			r = vcs
		}
	}
	if r == "" {
		r = unstamped
	}
	return v, r
}

func firstOf(candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	rev, dirty := "", false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev != "" && dirty {
		rev += "+dirty"
	}
	return rev
}

// Version of confix, like "0.1.0".
func Version() string {
	v, _ := stamp()
	return v
}

// Revision is the commit confix is built from, or "dev".
func Revision() string {
	_, r := stamp()
	return r
}

// String is "<version> (<revision>)", for startup logs. Commit hashes are shortened to 12 letters.
func String() string {
	r := Revision()
	if len(r) > 12 && !strings.HasSuffix(r, "+dirty") {
		r = r[:12]
	}
	return Version() + " (" + r + ")"
}

// UserAgent names product at this version, as "product/version".
func UserAgent(product string) string {
	return product + "/" + Version()
}
