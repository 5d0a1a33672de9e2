package cell

// mutatorToken binds one handle to its group's mutable-borrow slot.
//
// Slot occupancy mirrors the token: bindMutator fills the slot, release
// empties it. A token is created only by BorrowMutable and is released
// when its handle is dropped or when ownership moves away from a handle
// holding it. All calls happen under the group's bookkeeping mutex.
type mutatorToken struct {
	holder uint64         // handle ID authorized to mutate
	slot   **mutatorToken // the group's mutator field
}

func bindMutator(holder uint64, slot **mutatorToken) *mutatorToken {
	t := &mutatorToken{holder: holder, slot: slot}
	*slot = t
	return t
}

// release empties the slot if it still holds t. Idempotent, nil-safe.
func (t *mutatorToken) release() {
	if t == nil {
		return
	}
	if *t.slot == t {
		*t.slot = nil
	}
}

// held reports whether t currently occupies the slot.
func (t *mutatorToken) held() bool {
	return t != nil && *t.slot == t
}
