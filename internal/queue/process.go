package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/bibliograph/pkg/graph"
	"github.com/OFFIS-RIT/bibliograph/pkg/leaselock"
	"github.com/OFFIS-RIT/bibliograph/pkg/loader"
	"github.com/OFFIS-RIT/bibliograph/pkg/loader/csv"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
	"github.com/OFFIS-RIT/bibliograph/pkg/store"
)

// InputStore is the object storage holding uploaded inputs.
type InputStore interface {
	Loader() loader.GraphFileLoader
	DeleteInputs(ctx context.Context, storeID string) error
}

// StoreLocker serializes jobs on one store.
type StoreLocker interface {
	WithStore(ctx context.Context, storeID string, opts leaselock.Options, fn func(ctx context.Context) error) error
}

// Processor runs compile and delete jobs.
type Processor struct {
	Graph   *graph.GraphClient
	Storage store.Storage
	Inputs  InputStore
	Locker  StoreLocker
	// Events receives store status events when set.
	Events Publisher
}

var lockOptions = leaselock.Options{Wait: true}

// ProcessCompileMessage rebuilds the store named in msg. Input and grammar
// errors settle the store as failed and are not retried.
func (p *Processor) ProcessCompileMessage(ctx context.Context, msg []byte) error {
	var data CompileMsg
	if err := json.Unmarshal(msg, &data); err != nil {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	if data.StoreID == "" {
		return fmt.Errorf("%w: compile message without store id", ErrPermanent)
	}

	input, err := data.Input(csv.NewCSVGraphLoader(p.Inputs.Loader()))
	if err != nil {
		p.publish(data.StoreID, store.StatusFailed, err)
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}

	err = p.Locker.WithStore(ctx, data.StoreID, lockOptions, func(ctx context.Context) error {
		return p.Graph.CompileToStore(ctx, input, p.Storage, data.StoreID)
	})
	switch {
	case err == nil:
		logger.Info("[Queue][Compile] Store compiled", "store", data.StoreID)
		p.publish(data.StoreID, store.StatusReady, nil)
		return nil
	case errors.Is(err, store.ErrNotFound):
		logger.Warn("[Queue][Compile] Store vanished before compile", "store", data.StoreID)
		return nil
	case isInputError(err):
		p.publish(data.StoreID, store.StatusFailed, err)
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	default:
		return err
	}
}

// ProcessDeleteMessage removes a store and its uploaded inputs.
func (p *Processor) ProcessDeleteMessage(ctx context.Context, msg []byte) error {
	var data DeleteMsg
	if err := json.Unmarshal(msg, &data); err != nil {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}

	return p.Locker.WithStore(ctx, data.StoreID, lockOptions, func(ctx context.Context) error {
		if err := p.Inputs.DeleteInputs(ctx, data.StoreID); err != nil {
			return err
		}
		err := p.Storage.DeleteStore(ctx, data.StoreID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		logger.Info("[Queue][Delete] Store deleted", "store", data.StoreID)
		return nil
	})
}

func (p *Processor) publish(storeID string, status store.Status, cause error) {
	if p.Events == nil {
		return
	}
	ev := StoreEvent{StoreID: storeID, Status: string(status)}
	if cause != nil {
		ev.Error = cause.Error()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := PublishEvent(p.Events, "store."+string(status), body); err != nil {
		logger.Warn("[Queue][Event] Failed to publish store event", "store", storeID, "err", err)
	}
}
