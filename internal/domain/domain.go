package domain

import "github.com/yungbote/docfill-backend/internal/domain/fill"

type (
	FillSession   = fill.Session
	Placeholder   = fill.Placeholder
	Fact          = fill.Fact
	SessionAction = fill.SessionAction
	Counter       = fill.Counter
)

// Models lists every persisted type, in migration order.
func Models() []any {
	return []any{
		&FillSession{},
		&Placeholder{},
		&Fact{},
		&SessionAction{},
		&Counter{},
	}
}
