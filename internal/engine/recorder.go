package engine

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	logx "daypack/pkg/logx"
)

var rePartSuffix = regexp.MustCompile(`^(.+)_part_\d+$`)

// OriginalID strips the "_part_N" suffix from a split chunk's id. Unsplit
// ids come back unchanged.
func OriginalID(id string) string {
	if m := rePartSuffix.FindStringSubmatch(id); m != nil {
		return m[1]
	}
	return id
}

// CompletionRecorder applies a packed schedule back to the underlying
// commitments, exactly once per original item. Write-backs are best-effort:
// a failed write is logged and skipped, never rolled back, because the
// scheduling decision itself already stands.
type CompletionRecorder struct {
	rec     Recorder
	log     logx.Logger
	limiter *rate.Limiter
}

// NewCompletionRecorder wraps a Recorder collaborator. ratePerSec > 0
// throttles write-backs to roughly that many calls per second; 0 disables
// throttling.
func NewCompletionRecorder(rec Recorder, ratePerSec int, log logx.Logger) *CompletionRecorder {
	if log.IsZero() {
		log = logx.Nop()
	}
	var lim *rate.Limiter
	if ratePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)
	}
	return &CompletionRecorder{rec: rec, log: log, limiter: lim}
}

// Record collapses the placements down to their distinct original items and
// writes one completion per item: recurring items get today's occurrence
// marked done, objectives get moved to in-progress.
//
// Ids that do not parse as UUIDs are client-temporary ids for work that was
// never persisted; those are skipped without any write attempt. Both
// collaborator operations are idempotent, so recording the same schedule
// twice settles on the same state.
func (r *CompletionRecorder) Record(ctx context.Context, userID string, day time.Time, placed []Placement) (recorded, failed int) {
	if r == nil || r.rec == nil {
		return 0, 0
	}

	seen := map[string]bool{}
	var order []string
	kinds := map[string]Kind{}
	for _, p := range placed {
		id := OriginalID(p.Item.ID)
		if seen[id] {
			continue
		}
		seen[id] = true
		order = append(order, id)
		kinds[id] = p.Item.Kind
	}

	for _, id := range order {
		if _, err := uuid.Parse(id); err != nil {
			r.log.Debug("skipping non-persisted item id", logx.String("id", id))
			continue
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				r.log.Warn("completion recording interrupted", logx.Err(err), logx.String("user_id", userID))
				return recorded, failed
			}
		}

		var err error
		switch kinds[id] {
		case KindObjective:
			err = r.rec.SetObjectiveStatus(ctx, id, userID, StatusInProgress)
		default:
			err = r.rec.MarkRecurringDone(ctx, id, userID, day)
		}
		if err != nil {
			failed++
			r.log.Warn("completion write-back failed",
				logx.String("id", id),
				logx.String("kind", string(kinds[id])),
				logx.String("user_id", userID),
				logx.Err(err),
			)
			continue
		}
		recorded++
	}
	return recorded, failed
}
