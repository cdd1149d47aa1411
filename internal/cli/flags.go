package cli

import (
	"github.com/spf13/pflag"

	"github.com/aidanlsb/lang/internal/profile"
)

// levelValue is a flag accepting only the profile's levels.
type levelValue struct {
	profile *profile.Profile
	value   string
}

var _ pflag.Value = (*levelValue)(nil)

func newLevelValue(p *profile.Profile) *levelValue {
	return &levelValue{profile: p}
}

func (v *levelValue) String() string { return v.value }

func (v *levelValue) Set(s string) error {
	level, err := v.profile.ParseLevel(s)
	if err != nil {
		return err
	}
	v.value = level
	return nil
}

func (v *levelValue) Type() string { return "level" }
