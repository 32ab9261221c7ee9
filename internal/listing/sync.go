package listing

import (
	"context"
	"fmt"
	"sort"
)

// SyncResult reports what SyncPending moved.
type SyncResult struct {
	// Synced maps each pushed local id to its new remote id.
	Synced map[string]string `json:"synced"`

	// Pending is the number of local listings left after the run.
	Pending int `json:"pending"`
}

// SyncPending pushes local-only listings to the remote store, oldest first.
//
// Each listing keeps its owner, status and creation time. After a listing is
// accepted remotely its local copy is removed, so it never exists in both
// stores once the call returns. The run stops at the first remote failure;
// listings not yet pushed stay local and the error is returned alongside the
// partial result.
func (r *Repository) SyncPending(ctx context.Context) (SyncResult, error) {
	res := SyncResult{Synced: make(map[string]string)}

	local, err := r.local.LocalListings(ctx)
	if err != nil {
		return res, fmt.Errorf("sync pending: %w", err)
	}
	sort.SliceStable(local, func(i, j int) bool {
		return local[i].CreatedAt < local[j].CreatedAt
	})
	res.Pending = len(local)

	for _, l := range local {
		localID := l.ID

		push := l
		push.ID = ""
		rctx, cancel := r.remoteCtx(ctx)
		created, err := r.remote.AddListing(rctx, push)
		cancel()
		if err != nil {
			r.logger.Warn("sync stopped, remote rejected listing", "id", localID, "error", err)
			return res, fmt.Errorf("sync %s: %w", localID, err)
		}

		if err := r.local.DeleteLocalListing(ctx, localID); err != nil {
			// The remote copy is now canonical; a leftover local copy would be
			// a duplicate, so surface it.
			r.logger.Error("synced listing still cached locally", "id", localID, "remote_id", created.ID, "error", err)
			return res, fmt.Errorf("sync %s: drop local copy: %w", localID, err)
		}

		res.Synced[localID] = created.ID
		res.Pending--
		r.logger.Info("listing synced", "local_id", localID, "remote_id", created.ID)
	}

	return res, nil
}

// PendingCount returns the number of local-only listings.
func (r *Repository) PendingCount(ctx context.Context) (int, error) {
	local, err := r.local.LocalListings(ctx)
	if err != nil {
		return 0, fmt.Errorf("pending count: %w", err)
	}
	return len(local), nil
}
