package comet

import (
	"github.com/oklog/ulid/v2"
)

// comparable
// identifies one client instance ("page load") in logs and request headers
type Id [16]byte

func NewId() Id {
	return Id(ulid.Make())
}

func ParseId(idStr string) (Id, error) {
	id, err := ulid.ParseStrict(idStr)
	if err != nil {
		return Id{}, err
	}
	return Id(id), nil
}

func (self Id) String() string {
	return ulid.ULID(self).String()
}
