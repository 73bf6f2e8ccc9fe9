package ws

import (
	"context"

	"go.uber.org/zap"

	"github.com/polyquote/polyquote/pkg/clob"
)

// UserStream subscribes to the authenticated user channel and emits our
// own trade and order lifecycle events.
type UserStream struct {
	url     string
	creds   clob.APICreds
	markets []string
	out     chan<- UserEvent
	log     *zap.Logger
}

func NewUserStream(url string, creds clob.APICreds, markets []string, out chan<- UserEvent, log *zap.Logger) *UserStream {
	return &UserStream{url: url, creds: creds, markets: markets, out: out, log: log}
}

type userSubscribe struct {
	Auth    userAuth `json:"auth"`
	Markets []string `json:"markets"`
	Type    string   `json:"type"`
}

type userAuth struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Run blocks until ctx is cancelled, reconnecting as needed.
func (s *UserStream) Run(ctx context.Context) {
	sub := userSubscribe{
		Auth: userAuth{
			APIKey:     s.creds.APIKey,
			Secret:     s.creds.Secret,
			Passphrase: s.creds.Passphrase,
		},
		Markets: s.markets,
		Type:    "user",
	}
	runStream(ctx, s.url, sub, func(raw []byte) error {
		events, err := ParseUserEvents(raw)
		if err != nil {
			s.log.Warn("bad user frame", zap.Error(err))
			return nil
		}
		for _, ev := range events {
			select {
			case s.out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}, s.log)
}
