package registry

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Delimiter separates references in a serialized endpoint.
	Delimiter = ","
	// Separator splits a reference into owner and member.
	Separator = "::"
)

var ErrInvalidRef = errors.New("invalid reference")

// Ref names a handler or middleware factory as "Owner::Member".
type Ref string

// NewRef joins owner and member. The result is not validated.
func NewRef(owner, member string) Ref {
	return Ref(owner + Separator + member)
}

// ParseRef validates s and returns it as a Ref.
func ParseRef(s string) (Ref, error) {
	r := Ref(strings.TrimSpace(s))
	if err := r.Validate(); err != nil {
		return "", err
	}
	return r, nil
}

// Validate checks the owner and member are present and the reserved
// delimiter is absent.
func (r Ref) Validate() error {
	s := string(r)
	if strings.Contains(s, Delimiter) {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidRef, s, Delimiter)
	}
	owner, member, ok := r.split()
	if !ok {
		return fmt.Errorf("%w: %q is not Owner%sMember", ErrInvalidRef, s, Separator)
	}
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(member) == "" {
		return fmt.Errorf("%w: %q has an empty part", ErrInvalidRef, s)
	}
	return nil
}

func (r Ref) Owner() string {
	o, _, _ := r.split()
	return o
}

func (r Ref) Member() string {
	_, m, _ := r.split()
	return m
}

func (r Ref) String() string { return string(r) }

// owners may be namespaced with the separator themselves, the member is
// always the last part
func (r Ref) split() (string, string, bool) {
	s := string(r)
	i := strings.LastIndex(s, Separator)
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+len(Separator):], true
}
