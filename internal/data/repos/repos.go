package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/docfill-backend/internal/data/repos/sessions"
	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

type SessionRepo = sessions.SessionRepo
type PlaceholderRepo = sessions.PlaceholderRepo
type FactRepo = sessions.FactRepo
type ActionRepo = sessions.ActionRepo

var (
	NewSessionRepo     = sessions.NewSessionRepo
	NewPlaceholderRepo = sessions.NewPlaceholderRepo
	NewFactRepo        = sessions.NewFactRepo
	NewActionRepo      = sessions.NewActionRepo
)

// Repos bundles every repository the fulfillment service writes through.
type Repos struct {
	Sessions     SessionRepo
	Placeholders PlaceholderRepo
	Facts        FactRepo
	Actions      ActionRepo
	Tx           TxRunner
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Sessions:     NewSessionRepo(db, log),
		Placeholders: NewPlaceholderRepo(db, log),
		Facts:        NewFactRepo(db, log),
		Actions:      NewActionRepo(db, log),
		Tx:           NewGormTxRunner(db),
	}
}
