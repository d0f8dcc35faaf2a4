package store

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// watchCollection implements the live-subscription contract shared by every
// list subscription: deliver a snapshot immediately, then re-run the query
// after each change-stream event. Requerying on every event keeps the
// delivered list consistent with the wrapper's filter and ordering contract
// without replaying individual deltas (deletes carry no full document).
//
// The returned CancelFunc stops delivery; no callback runs after it returns.
func watchCollection(ctx context.Context, s *Store, coll *mongo.Collection, requery func(context.Context) error) (CancelFunc, error) {
	watchCtx, cancel := context.WithCancel(ctx)

	stream, err := coll.Watch(watchCtx, mongo.Pipeline{},
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		cancel()
		return nil, err
	}

	if err := requery(watchCtx); err != nil {
		stream.Close(context.Background())
		cancel()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stream.Close(context.Background())

		for stream.Next(watchCtx) {
			if err := requery(watchCtx); err != nil {
				if watchCtx.Err() != nil {
					return
				}
				s.log.Warn("subscription requery failed",
					zap.String("collection", coll.Name()),
					zap.Error(err),
				)
			}
		}
		if err := stream.Err(); err != nil && watchCtx.Err() == nil {
			s.log.Error("change stream terminated",
				zap.String("collection", coll.Name()),
				zap.Error(err),
			)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}
