package daemon

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/neoromantic/telegram-sync-cli/internal/store"
)

// StatusSnapshot is the daemon's externally-visible status (spec §3.1
// "Daemon status", §6 `daemon status`/`status`), paired with
// human-readable fields the way the teacher's CacheStats pairs a raw
// counter with a HumanSize field.
type StatusSnapshot struct {
	StartedAt         int64  `json:"started_at"`
	Uptime            string `json:"uptime"`
	LastUpdate        int64  `json:"last_update"`
	ConnectedAccounts int    `json:"connected_accounts"`
	TotalAccounts     int    `json:"total_accounts"`
	MessagesSynced    int64  `json:"messages_synced"`
	MessagesSyncedHR  string `json:"messages_synced_human"`
}

// Snapshot reads the daemon_status row and humanizes it.
func Snapshot(ctx context.Context, statusStore *store.StatusStore) (StatusSnapshot, error) {
	ds, err := statusStore.Get(ctx)
	if err != nil {
		return StatusSnapshot{}, err
	}
	uptime := "0s"
	if ds.StartedAt > 0 {
		uptime = humanize.RelTime(time.Unix(ds.StartedAt, 0), time.Now(), "", "")
	}
	return StatusSnapshot{
		StartedAt:         ds.StartedAt,
		Uptime:            uptime,
		LastUpdate:        ds.LastUpdate,
		ConnectedAccounts: ds.ConnectedAccounts,
		TotalAccounts:     ds.TotalAccounts,
		MessagesSynced:    ds.MessagesSynced,
		MessagesSyncedHR:  humanize.Comma(ds.MessagesSynced),
	}, nil
}
