package domain

import dErrors "trapper/pkg/domain-errors"

// Kind discriminates the resolvable entity tables. Places, people, and
// animals share the same lifecycle (live row, tombstone with merged_into) so
// the resolution engine treats them uniformly.
type Kind string

const (
	KindPlace  Kind = "place"
	KindPerson Kind = "person"
	KindAnimal Kind = "animal"
)

// validKinds is the single source of truth for resolvable kinds.
var validKinds = map[Kind]bool{
	KindPlace:  true,
	KindPerson: true,
	KindAnimal: true,
}

func (k Kind) IsValid() bool { return validKinds[k] }

// ParseKind constructs a Kind from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "kind cannot be empty")
	}
	k := Kind(s)
	if !k.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported kind: "+s)
	}
	return k, nil
}
