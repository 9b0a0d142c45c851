package filelock

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/calvinalkan/persist/internal/fsx"
)

// Recover reconciles OLD, COMMITTED, and NEW into a consistent state. It must
// run immediately after acquiring LOCK and before any user-visible I/O; it is
// the precondition every other operation in this module assumes.
//
// After Recover returns successfully, exactly one of {}, {COMMITTED} holds,
// for every starting state except a lone OLD (no COMMITTED, no NEW): that
// state matches none of the cases below and OLD is left in place.
//
// The existence of each file is checked once up front; the four cases are
// then applied in order, updating those flags after each rename or removal.
// They mirror the source's asymmetric handling of the anomalous
// three-file case: when OLD, COMMITTED, and NEW are all present, COMMITTED is
// discarded outright and the recovery falls through to the two-file
// roll-forward case, trusting NEW as the most recent writer's intent. This
// behavior is preserved deliberately; see the open question recorded in
// DESIGN.md before changing it.
func Recover(fs fsx.FS, paths Paths, logger zerolog.Logger) error {
	o, err := fs.Exists(paths.Old)
	if err != nil {
		return fmt.Errorf("filelock: recovery: stat old: %w", err)
	}

	c, err := fs.Exists(paths.Committed)
	if err != nil {
		return fmt.Errorf("filelock: recovery: stat committed: %w", err)
	}

	n, err := fs.Exists(paths.New)
	if err != nil {
		return fmt.Errorf("filelock: recovery: stat new: %w", err)
	}

	if o && c && n {
		logger.Warn().Str("old", paths.Old).Str("committed", paths.Committed).Str("new", paths.New).
			Msg("filelock: recovery: all three files present, discarding committed and rolling forward")

		if err := fs.Remove(paths.Old); err != nil {
			return fmt.Errorf("filelock: recovery: remove old: %w", err)
		}

		if err := fs.Rename(paths.Committed, paths.Old); err != nil {
			return fmt.Errorf("filelock: recovery: rename committed to old: %w", err)
		}

		o, c = true, false
	}

	if o && n {
		logger.Debug().Str("new", paths.New).Str("committed", paths.Committed).Msg("filelock: recovery: rolling forward")

		if err := fs.Rename(paths.New, paths.Committed); err != nil {
			return fmt.Errorf("filelock: recovery: rename new to committed: %w", err)
		}

		o, c, n = true, true, false
	}

	if o && c {
		logger.Debug().Str("old", paths.Old).Msg("filelock: recovery: dropping stale old")

		if err := fs.Remove(paths.Old); err != nil {
			return fmt.Errorf("filelock: recovery: remove old: %w", err)
		}

		o = false
	}

	if n {
		logger.Debug().Str("new", paths.New).Msg("filelock: recovery: rolling back leftover new")

		if err := fs.Remove(paths.New); err != nil {
			return fmt.Errorf("filelock: recovery: remove new: %w", err)
		}
	}

	return nil
}
