package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"taskflow/internal/cache"
	"taskflow/internal/config"
	"taskflow/internal/models"
	"taskflow/pkg/logger"

	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

// Store is the write side of the repository.
type Store interface {
	CreateTodo(ctx context.Context, t *models.Todo) error
	UpdateTodo(ctx context.Context, t *models.Todo) error
	DeleteTodo(ctx context.Context, userID, id string) error
	CreateProject(ctx context.Context, p *models.Project) error
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, userID, id string) error
}

// Invalidator drops a user's cached pages.
type Invalidator interface {
	Invalidate(ctx context.Context, userID string, kinds ...string)
}

// ErrUnknownCommand is returned for commands with an unrecognized action or entity.
var ErrUnknownCommand = errors.New("unknown command")

// Applier executes commands against the store and invalidates the cache.
type Applier struct {
	store     Store
	cache     Invalidator
	processed atomic.Int64
}

// NewApplier returns an Applier. cache may be nil.
func NewApplier(store Store, cache Invalidator) *Applier {
	return &Applier{store: store, cache: cache}
}

// Processed returns how many commands were applied successfully.
func (a *Applier) Processed() int64 {
	return a.processed.Load()
}

// Publish applies cmd synchronously. It lets the Applier stand in for the
// Kafka publisher when no brokers are configured.
func (a *Applier) Publish(ctx context.Context, cmd *models.Command) error {
	return a.Apply(ctx, cmd)
}

// Apply executes a single command.
func (a *Applier) Apply(ctx context.Context, cmd *models.Command) error {
	var err error
	switch cmd.Entity {
	case models.EntityTodo:
		err = a.applyTodo(ctx, cmd)
	case models.EntityProject:
		err = a.applyProject(ctx, cmd)
	default:
		err = fmt.Errorf("%w: entity %q", ErrUnknownCommand, cmd.Entity)
	}
	if err != nil {
		return err
	}
	if a.cache != nil {
		// todo writes change project counters too
		a.cache.Invalidate(ctx, cmd.UserID, cache.KindTodos, cache.KindProjects)
	}
	a.processed.Add(1)
	return nil
}

func (a *Applier) applyTodo(ctx context.Context, cmd *models.Command) error {
	switch cmd.Action {
	case models.ActionCreate:
		if cmd.Todo == nil {
			return fmt.Errorf("%w: create todo without payload", ErrUnknownCommand)
		}
		return a.store.CreateTodo(ctx, cmd.Todo)
	case models.ActionUpdate:
		if cmd.Todo == nil {
			return fmt.Errorf("%w: update todo without payload", ErrUnknownCommand)
		}
		return a.store.UpdateTodo(ctx, cmd.Todo)
	case models.ActionDelete:
		return a.store.DeleteTodo(ctx, cmd.UserID, cmd.ID)
	}
	return fmt.Errorf("%w: action %q", ErrUnknownCommand, cmd.Action)
}

func (a *Applier) applyProject(ctx context.Context, cmd *models.Command) error {
	switch cmd.Action {
	case models.ActionCreate:
		if cmd.Project == nil {
			return fmt.Errorf("%w: create project without payload", ErrUnknownCommand)
		}
		return a.store.CreateProject(ctx, cmd.Project)
	case models.ActionUpdate:
		if cmd.Project == nil {
			return fmt.Errorf("%w: update project without payload", ErrUnknownCommand)
		}
		return a.store.UpdateProject(ctx, cmd.Project)
	case models.ActionDelete:
		return a.store.DeleteProject(ctx, cmd.UserID, cmd.ID)
	}
	return fmt.Errorf("%w: action %q", ErrUnknownCommand, cmd.Action)
}

// HandleMessage decodes a Kafka payload and applies it.
func (a *Applier) HandleMessage(ctx context.Context, payload []byte) error {
	var cmd models.Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decode command: %w", err)
	}
	return a.Apply(ctx, &cmd)
}

// MessageReader is the subset of *kafka.Reader a consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Run starts cfg.WorkerPoolSize consumers in one group and blocks until ctx is
// done. Scale further by running more replicas; the group shares partitions.
func Run(ctx context.Context, cfg *config.Config, a *Applier) error {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info(ctx, "Worker disabled (no Kafka brokers)")
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.WorkerPoolSize; i++ {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.KafkaBrokers,
			Topic:    cfg.KafkaTopic,
			GroupID:  "todo-workers",
			MinBytes: 1,
			MaxBytes: 10e6,
		})
		g.Go(func() error {
			defer reader.Close()
			Consume(ctx, reader, a)
			return nil
		})
	}
	logger.Info(ctx, "Kafka consumers started", "topic", cfg.KafkaTopic, "consumers", cfg.WorkerPoolSize)
	return g.Wait()
}

// Consume reads commands until ctx is done. A command that fails is logged and
// committed anyway so a poison message cannot block its partition.
func Consume(ctx context.Context, r MessageReader, a *Applier) {
	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "Worker fetch failed", "error", err)
			continue
		}
		if err := a.HandleMessage(ctx, msg.Value); err != nil {
			logger.Error(ctx, "Worker handle failed", "error", err, "payload", string(msg.Value))
		}
		if err := r.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "Worker commit failed", "error", err)
		}
	}
}
