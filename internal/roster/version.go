package roster

import (
	"strconv"
	"strings"
)

// actOnParentVersion is the first protocol version where a parent id, when
// present, takes precedence for actions issued without an explicit target.
const actOnParentVersion = "35.1"

// versionAtLeast compares "<major>.<minor>" protocol versions numerically.
// An empty or unparsable version compares below everything, which keeps
// the client on the conservative pre-35.1 behavior.
func versionAtLeast(v, min string) bool {
	vMaj, vMin, ok := parseVersion(v)
	if !ok {
		return false
	}
	mMaj, mMin, ok := parseVersion(min)
	if !ok {
		return false
	}
	if vMaj != mMaj {
		return vMaj > mMaj
	}
	return vMin >= mMin
}

func parseVersion(v string) (major, minor int, ok bool) {
	head, tail, found := strings.Cut(v, ".")
	major, err := strconv.Atoi(head)
	if err != nil {
		return 0, 0, false
	}
	if !found {
		return major, 0, true
	}
	// ignore anything past the minor component
	if i := strings.IndexByte(tail, '.'); i >= 0 {
		tail = tail[:i]
	}
	minor, err = strconv.Atoi(tail)
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}
