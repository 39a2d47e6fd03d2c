package eventbus

import "reflect"

// funcPointer returns the code pointer of a Handler so Off can identify
// the handler to remove by the same equality Go uses for "same function
// value" (funcs are not otherwise comparable).
func funcPointer(h Handler) uintptr {
	return reflect.ValueOf(h).Pointer()
}
