package domain

import "time"

// Token is the opaque session credential returned on join. It is replaced
// in place by the refresher and must never be mutated by anyone else.
type Token struct {
	Value    string
	Expires  time.Duration
	IssuedAt time.Time
}

func NewToken(value string, expires time.Duration, issuedAt time.Time) Token {
	return Token{Value: value, Expires: expires, IssuedAt: issuedAt}
}

// RefreshAfter is the schedule point for re-issuing the credential,
// half of the advertised lifetime.
func (t Token) RefreshAfter() time.Duration {
	return t.Expires / 2
}

func (t Token) Zero() bool { return t.Value == "" }
