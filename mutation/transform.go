package mutation

import "github.com/Florvin-04/product-catalog-cache/cache"

// The transforms below are the optimistic patches the executor applies to
// list-shaped entries. They are copy-on-write: the incoming slice is never
// mutated, so the executor's snapshots stay valid for rollback. Each declines
// (returns ok=false) for entries without data or whose data is not []T,
// leaving those entries untouched.

// PrependRecord returns an updater that puts rec at the head of list data.
func PrependRecord[T Record](rec T) cache.UpdaterFunc {
	return func(data any, ok bool) (any, bool) {
		list, valid := listData[T](data, ok)
		if !valid {
			return nil, false
		}
		next := make([]T, 0, len(list)+1)
		next = append(next, rec)
		next = append(next, list...)
		return next, true
	}
}

// ReplaceRecord returns an updater that swaps the list element whose identity
// matches rec for rec itself.
func ReplaceRecord[T Record](rec T) cache.UpdaterFunc {
	return ReplaceRecordByID[T](rec.RecordID(), rec)
}

// ReplaceRecordByID returns an updater that swaps the list element with the
// given id for rec. Used at commit to overwrite an optimistic placeholder
// with the server's authoritative record, whose id may differ.
func ReplaceRecordByID[T Record](id string, rec T) cache.UpdaterFunc {
	return func(data any, ok bool) (any, bool) {
		list, valid := listData[T](data, ok)
		if !valid {
			return nil, false
		}
		idx := -1
		for i := range list {
			if list[i].RecordID() == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, false
		}
		next := append([]T(nil), list...)
		next[idx] = rec
		return next, true
	}
}

// RemoveRecord returns an updater that drops the list element with the given
// id, preserving the order of the rest.
func RemoveRecord[T Record](id string) cache.UpdaterFunc {
	return func(data any, ok bool) (any, bool) {
		list, valid := listData[T](data, ok)
		if !valid {
			return nil, false
		}
		next := make([]T, 0, len(list))
		removed := false
		for _, item := range list {
			if item.RecordID() == id {
				removed = true
				continue
			}
			next = append(next, item)
		}
		if !removed {
			return nil, false
		}
		return next, true
	}
}

func listData[T Record](data any, ok bool) ([]T, bool) {
	if !ok {
		return nil, false
	}
	list, valid := data.([]T)
	return list, valid
}
