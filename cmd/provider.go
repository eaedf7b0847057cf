package cmd

import (
	"time"

	"ltiprovider/core"
	"ltiprovider/pkg/resthttp"
	outcomeservice "ltiprovider/service/outcome"
	"ltiprovider/service/session"
	"ltiprovider/service/signature"
	"ltiprovider/store/consumer"
	"ltiprovider/store/outcome"
	"ltiprovider/store/scoreevent"
	"ltiprovider/worker/dispatcher"

	"github.com/fox-one/pkg/store/db"
	"github.com/go-resty/resty/v2"
)

const sessionCacheCapacity = 4096

func provideDatabase() *db.DB {
	return db.MustOpen(cfg.DB)
}

func provideConfig() *core.Config {
	return &cfg
}

// ---------------store-----------------------------------------

func provideConsumerStore(db *db.DB) core.ConsumerStore {
	return consumer.Cache(consumer.New(db), cfg.Cache.ConsumerCapacity, time.Duration(cfg.Cache.ConsumerTTL))
}

func provideOutcomeStore(db *db.DB) core.OutcomeStore {
	return outcome.New(db)
}

func provideScoreEventStore(db *db.DB) core.ScoreEventStore {
	return scoreevent.New(db)
}

// ------------------service------------------------------------

func provideRestClient() *resty.Client {
	return resthttp.New(time.Duration(cfg.Outcome.Timeout), cfg.Outcome.UserAgent)
}

func provideSession() core.Session {
	return session.New(cfg.Session, sessionCacheCapacity)
}

func provideSignatureValidator(consumers core.ConsumerStore) core.SignatureValidator {
	return signature.New(consumers)
}

func provideOutcomeCodec() core.OutcomeCodec {
	return outcomeservice.NewCodec()
}

func provideOutcomeTransport(client *resty.Client) core.OutcomeTransport {
	return outcomeservice.NewTransport(client, cfg.Outcome)
}

// ------------------worker-------------------------------------

func provideDispatcher(db *db.DB) *dispatcher.Dispatcher {
	return dispatcher.New(
		provideScoreEventStore(db),
		provideOutcomeStore(db),
		provideConsumerStore(db),
		provideOutcomeCodec(),
		provideOutcomeTransport(provideRestClient()),
		cfg.Dispatcher,
	)
}
