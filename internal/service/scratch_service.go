package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"floodwatch/internal/domain"
	"floodwatch/internal/store"
)

// Scratch kinds. Scratch state is per-user and never written to Postgres.
const (
	ScratchRoster   = "roster"
	ScratchSupplies = "supplies"
)

const maxScratchBytes = 64 << 10

// ScratchService family roster and supply inventory kept as opaque JSON.
type ScratchService interface {
	// Get returns the stored document, or an empty JSON array when none.
	Get(ctx context.Context, caller *domain.Profile, kind string) (json.RawMessage, error)
	Put(ctx context.Context, caller *domain.Profile, kind string, doc json.RawMessage) error
}

type scratchService struct {
	kv store.KV
}

func NewScratchService(kv store.KV) ScratchService {
	return &scratchService{kv: kv}
}

func scratchKey(userID, kind string) (string, error) {
	switch kind {
	case ScratchRoster, ScratchSupplies:
		return fmt.Sprintf("scratch:%s:%s", userID, kind), nil
	}
	return "", validationf("unknown scratch kind %q", kind)
}

func (s *scratchService) Get(ctx context.Context, caller *domain.Profile, kind string) (json.RawMessage, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	key, err := scratchKey(caller.UserID, kind)
	if err != nil {
		return nil, err
	}
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return json.RawMessage("[]"), nil
		}
		return nil, fmt.Errorf("failed to read scratch %s: %w", kind, err)
	}
	return json.RawMessage(raw), nil
}

func (s *scratchService) Put(ctx context.Context, caller *domain.Profile, kind string, doc json.RawMessage) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	key, err := scratchKey(caller.UserID, kind)
	if err != nil {
		return err
	}
	if len(doc) > maxScratchBytes {
		return validationf("scratch document too large")
	}
	if !json.Valid(doc) {
		return validationf("scratch document is not valid JSON")
	}
	if err := s.kv.Set(ctx, key, string(doc), 0); err != nil {
		return fmt.Errorf("failed to write scratch %s: %w", kind, err)
	}
	return nil
}
