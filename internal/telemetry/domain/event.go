package domain

import "time"

// AccessEvent is one permitted module access, streamed for traffic analytics.
// The Postgres access_stats table is the durable record; this stream is a
// best-effort copy for downstream consumers.
type AccessEvent struct {
	Token      string    `json:"token"`
	Module     string    `json:"module"`
	UserID     int64     `json:"user_id"`
	SourceAddr string    `json:"source_addr"`
	OccurredAt time.Time `json:"occurred_at"`
}
