package assert

import "github.com/oomph-ac/resim/oerror"

// IsTrue panics with a fatal error if ok is false.
func IsTrue(ok bool, message string, args ...interface{}) {
	if !ok {
		panic(oerror.Fatal(message, args...))
	}
}
