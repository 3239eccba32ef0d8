package app

import (
	"fmt"
	"time"

	"github.com/yungbote/docfill-backend/internal/data/repos"
	"github.com/yungbote/docfill-backend/internal/modules/fulfillment"
	"github.com/yungbote/docfill-backend/internal/modules/fulfillment/llm"
	"github.com/yungbote/docfill-backend/internal/platform/lock"
	"github.com/yungbote/docfill-backend/internal/platform/logger"
	"github.com/yungbote/docfill-backend/internal/services"
)

// lockLeaseMargin covers the database work around the oracle calls.
const lockLeaseMargin = 10 * time.Second

// lockLease bounds how long a Redis session lease lives. It outlasts the
// slowest submission: a semantic check followed by a suggestion.
func lockLease(cfg fulfillment.Config) time.Duration {
	return cfg.OracleTimeout + cfg.SuggestTimeout + lockLeaseMargin
}

type Services struct {
	Fulfillment services.FulfillmentService
	Engine      *fulfillment.Engine
}

func wireServices(log *logger.Logger, cfg Config, r repos.Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	typeTable := fulfillment.DefaultTypeTable()
	if cfg.TypeMapPath != "" {
		t, err := fulfillment.LoadTypeTable(cfg.TypeMapPath)
		if err != nil {
			return Services{}, fmt.Errorf("load type table: %w", err)
		}
		typeTable = t
	}

	policy, err := fulfillment.ParseEscalationPolicy(cfg.SemanticPolicy, cfg.SemanticTypes)
	if err != nil {
		return Services{}, fmt.Errorf("semantic policy: %w", err)
	}

	var (
		semantic  fulfillment.SemanticOracle
		suggester fulfillment.Suggester      = fulfillment.StaticSuggester{}
		questions fulfillment.QuestionWriter = fulfillment.TemplateQuestions{}
	)
	if clients.Validator != nil {
		semantic = llm.NewSemanticOracle(clients.Validator)
	}
	if clients.QA != nil {
		suggester = llm.NewSuggester(clients.QA)
		if cfg.LLMQuestions {
			questions = llm.NewQuestionWriter(clients.QA, cfg.QuestionCache, cfg.QuestionTTL, log)
		}
	}

	engine := fulfillment.NewEngine(fulfillment.Config{
		MaxRetries:     cfg.MaxRetries,
		Escalation:     policy,
		OracleTimeout:  cfg.OracleTimeout,
		SuggestTimeout: cfg.SuggestTimeout,
	}, fulfillment.NewValidator(), semantic, suggester, log)

	var locker lock.Locker = lock.NewLocal()
	if clients.Redis != nil {
		locker = lock.Chain(locker, lock.NewRedis(clients.Redis, "", lockLease(engine.Config()), log))
	}

	var merger services.Merger
	if clients.Archive != nil {
		merger = services.NewArchiveMerger(clients.Archive, log)
	}

	svc := services.NewFulfillmentService(services.FulfillmentConfig{
		ContextWindowWords: cfg.ContextWindowWords,
		LockTimeout:        cfg.LockTimeout,
	}, log, r, engine, typeTable, questions, locker, merger)

	return Services{Fulfillment: svc, Engine: engine}, nil
}
