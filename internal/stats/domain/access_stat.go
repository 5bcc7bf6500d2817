package domain

import "time"

// AccessStat records one permitted module access, keyed by session token.
// Feeds the traffic-statistics reports; carries no authorization meaning.
type AccessStat struct {
	ID        string
	Token     string
	Module    string
	CreatedAt time.Time
}
