// Package zlog wires gate's diagnostic hooks into a zerolog logger.
//
// Permit traffic (mint, delivery, return) is logged at debug level;
// orphan and lease recoveries are logged at warning level because they
// indicate a caller that leaked a permit.
package zlog

import (
	"github.com/rs/zerolog"

	"github.com/byte4ever/gate"
)

// Hooks builds a [gate.Hooks] that reports every pool lifecycle event to
// logger. Pass it to [gate.WithHooks]; pool is the value used for the
// "pool" field on every entry.
func Hooks(logger zerolog.Logger, pool string) gate.Hooks {
	lg := logger.With().Str("pool", pool).Logger()

	return gate.Hooks{
		OnPermitMinted: func(id uint64) {
			lg.Debug().Uint64("permit", id).Msg("permit minted")
		},
		OnPermitDelivered: func(id uint64) {
			lg.Debug().Uint64("permit", id).Msg("permit delivered")
		},
		OnPermitReturned: func(id uint64) {
			lg.Debug().Uint64("permit", id).Msg("permit returned")
		},
		OnLateReturn: func(id uint64) {
			lg.Debug().Uint64("permit", id).Msg("late return of recovered permit ignored")
		},
		OnOrphanRecovered: func(id uint64) {
			lg.Warn().Uint64("permit", id).Msg("orphaned permit recovered; caller leaked a permit without closing it")
		},
		OnLeaseExpired: func(id uint64) {
			lg.Warn().Uint64("permit", id).Msg("permit lease expired; reclaimed from a slow holder")
		},
		OnRunStarted: func(id uint64) {
			lg.Debug().Uint64("permit", id).Msg("gated run started")
		},
		OnRunReentrant: func(id uint64) {
			lg.Debug().Uint64("permit", id).Msg("gated run reused held permit")
		},
		OnRunCanceled: func() {
			lg.Debug().Msg("gated run canceled by caller")
		},
		OnRunRecovered: func(err error) {
			lg.Error().Err(err).Msg("panic in gated function delivered as error")
		},
	}
}
