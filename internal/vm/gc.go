package vm

import "github.com/hiperiondev/tiny/internal/config"

// The collector is per-thread, stop-the-world mark-and-sweep. It runs
// only between instructions, so partially built stack frames cannot
// exist while it walks the roots.

// ProtectFromGC marks value and, for natives, lets the descriptor mark
// whatever the payload transitively references. Foreign callees use it
// to root transient allocations across re-entrant calls.
func ProtectFromGC(value Value) {
	if !value.isHeapObject() {
		return
	}

	obj := value.obj
	if obj.marked {
		return
	}

	// Mark before descending so cycles terminate.
	obj.marked = true

	if obj.typ == ValNative && obj.prop != nil && obj.prop.ProtectFromGC != nil {
		obj.prop.ProtectFromGC(obj.addr)
	}
}

// markAll marks every root: the return register, the live stack
// window, and the globals.
func (t *Thread) markAll() {
	ProtectFromGC(t.RetVal)

	for i := 0; i < t.SP; i++ {
		ProtectFromGC(t.Stack[i])
	}

	for _, v := range t.Globals {
		ProtectFromGC(v)
	}
}

// sweep unlinks and deletes every unmarked object in list order and
// clears the marks on survivors.
func (t *Thread) sweep() {
	link := &t.gcHead
	for *link != nil {
		obj := *link
		if !obj.marked {
			*link = obj.next
			t.numObjects--
			t.deleteObject(obj)
		} else {
			obj.marked = false
			link = &obj.next
		}
	}
}

func (t *Thread) deleteObject(obj *Object) {
	if obj.typ == ValNative && obj.prop != nil && obj.prop.Finalize != nil {
		obj.prop.Finalize(obj.addr)
	}
	obj.str = ""
	obj.addr = nil
	obj.next = nil
}

// collectGarbage runs a full mark-and-sweep cycle and rearms the
// trigger at twice the surviving population.
func (t *Thread) collectGarbage() {
	t.markAll()
	t.sweep()

	t.maxNumObjects = t.numObjects * 2
	if t.maxNumObjects < config.InitialGCThreshold {
		t.maxNumObjects = config.InitialGCThreshold
	}
}
