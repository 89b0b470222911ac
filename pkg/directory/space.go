package directory

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/kgcourse/geopub/pkg/chain"
	"github.com/kgcourse/geopub/pkg/ids"
)

// Kind is a space's governance model.
type Kind int

const (
	// Personal spaces have a single owner who publishes without voting.
	Personal Kind = iota + 1
	// DAO spaces are community governed; edits are proposals submitted by
	// members or editors.
	DAO
)

var ErrUnknownSpaceKind = errors.New("unknown space kind")

// ParseKind maps the directory's spelling onto a Kind. Anything other than
// a recognised personal or DAO spelling is rejected.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "PERSONAL":
		return Personal, nil
	case "PUBLIC", "DAO":
		return DAO, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSpaceKind, s)
	}
}

func (k Kind) String() string {
	switch k {
	case Personal:
		return "PERSONAL"
	case DAO:
		return "DAO"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type Space struct {
	ID      ids.ID
	Kind    Kind
	Address chain.Address
	Members []ids.ID
	Editors []ids.ID
}

// MemberSet is a set of member space ids.
type MemberSet map[ids.ID]struct{}

func (s MemberSet) Contains(id ids.ID) bool {
	_, ok := s[id]
	return ok
}

// Participants is the union of the space's members and editors.
func (s *Space) Participants() MemberSet {
	return lo.SliceToMap(lo.Union(s.Members, s.Editors), func(id ids.ID) (ids.ID, struct{}) {
		return id, struct{}{}
	})
}

// Authorizes reports whether the given personal space may propose edits to
// this space, i.e. whether it is a member or an editor.
func (s *Space) Authorizes(memberSpace ids.ID) bool {
	return s.Participants().Contains(memberSpace)
}
