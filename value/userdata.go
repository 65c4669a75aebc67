package value

import "fmt"

// UserData is an opaque heap value a native function can stash host state
// in (an open *os.File, for instance) and hand back to the program as a
// plain Value; the language itself never looks inside it.
type UserData struct {
	Tag  string
	Data any
}

func (u *UserData) Kind() Kind     { return KindUserData }
func (u *UserData) String() string { return fmt.Sprintf("userdata(%s %p)", u.Tag, u) }
