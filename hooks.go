package gate

// Hooks holds optional callback functions for permit lifecycle events. All
// fields are nil by default; callers set only the hooks they care about.
// Once constructed, a Hooks value must not be mutated — emit methods read
// the function fields without synchronisation, which is safe as long as the
// struct is read-only after initialisation.
//
// Pattern: Observer — decouples diagnostic event emission from consumers
// (logging, metrics, alerting) without the pool knowing about observers.
type Hooks struct {
	// OnPermitMinted fires when a fresh permit enters circulation, both at
	// pool construction and on replenishment.
	OnPermitMinted func(id uint64)
	// OnPermitDelivered fires when the dispenser stages a permit for
	// hand-out.
	OnPermitDelivered func(id uint64)
	// OnPermitReturned fires when an explicit Close is accepted and a
	// replacement is about to be minted.
	OnPermitReturned func(id uint64)
	// OnLateReturn fires when a Close arrives for a permit that was already
	// recovered; the close is a no-op and no replacement is minted.
	OnLateReturn func(id uint64)
	// OnOrphanRecovered fires when the scavenger reclaims a permit whose
	// holder dropped it without closing. Indicates caller misuse; consumers
	// should log this at warning level.
	OnOrphanRecovered func(id uint64)
	// OnLeaseExpired fires when the scavenger reclaims a permit whose lease
	// ran out while its holder was still reachable.
	OnLeaseExpired func(id uint64)
	// OnRunStarted fires when a gated function begins executing under a
	// freshly acquired permit.
	OnRunStarted func(id uint64)
	// OnRunReentrant fires when a nested gated call reuses the permit
	// already held by the calling task.
	OnRunReentrant func(id uint64)
	// OnRunCanceled fires when the caller closes the result queue before
	// the gated function delivers.
	OnRunCanceled func()
	// OnRunRecovered fires when a panic inside a gated function is caught
	// and converted into an error value.
	OnRunRecovered func(err error)
}

func (h *Hooks) emitPermitMinted(id uint64) {
	if h.OnPermitMinted != nil {
		h.OnPermitMinted(id)
	}
}

func (h *Hooks) emitPermitDelivered(id uint64) {
	if h.OnPermitDelivered != nil {
		h.OnPermitDelivered(id)
	}
}

func (h *Hooks) emitPermitReturned(id uint64) {
	if h.OnPermitReturned != nil {
		h.OnPermitReturned(id)
	}
}

func (h *Hooks) emitLateReturn(id uint64) {
	if h.OnLateReturn != nil {
		h.OnLateReturn(id)
	}
}

func (h *Hooks) emitOrphanRecovered(id uint64) {
	if h.OnOrphanRecovered != nil {
		h.OnOrphanRecovered(id)
	}
}

func (h *Hooks) emitLeaseExpired(id uint64) {
	if h.OnLeaseExpired != nil {
		h.OnLeaseExpired(id)
	}
}

func (h *Hooks) emitRunStarted(id uint64) {
	if h.OnRunStarted != nil {
		h.OnRunStarted(id)
	}
}

func (h *Hooks) emitRunReentrant(id uint64) {
	if h.OnRunReentrant != nil {
		h.OnRunReentrant(id)
	}
}

func (h *Hooks) emitRunCanceled() {
	if h.OnRunCanceled != nil {
		h.OnRunCanceled()
	}
}

func (h *Hooks) emitRunRecovered(err error) {
	if h.OnRunRecovered != nil {
		h.OnRunRecovered(err)
	}
}
