package counter

import (
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// countKey is the storage key of the counter value.
const countKey = "count"

// _deploy sets the initial counter value given as the first deployment data
// element (zero by default).
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		return
	}
	count := 0
	if data != nil {
		args := data.([]any)
		if len(args) > 0 {
			count = args[0].(int)
		}
	}
	storage.Put(storage.GetContext(), countKey, count)
}

// GetCount returns the current counter value as {"count": value} map.
func GetCount() map[string]int {
	ctx := storage.GetReadOnlyContext()
	return map[string]int{"count": storage.Get(ctx, countKey).(int)}
}

// Increment increments the counter and returns its new value.
func Increment() int {
	ctx := storage.GetContext()
	count := storage.Get(ctx, countKey).(int) + 1
	storage.Put(ctx, countKey, count)
	runtime.Notify("Incremented", count)
	return count
}
