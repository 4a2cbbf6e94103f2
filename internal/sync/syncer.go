// Package sync orchestrates the push-then-pull cycle against the remote
// change log: collecting dirty records into push batches, paging pulled
// changes through the merge upserts, and owning the server-sequence
// checkpoint.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hanpenneko/mossgrid/internal/store"
	"github.com/hanpenneko/mossgrid/internal/syncclient"
)

// pullPageSize is the server's page bound; a page shorter than this is the
// last one.
const pullPageSize = 500

// DefaultFlushInterval is how often the auto-sync loop flushes dirty
// records.
const DefaultFlushInterval = 30 * time.Second

// Result is the observable outcome of the most recent sync cycle.
type Result int32

const (
	ResultNone Result = iota
	ResultSuccess
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultError:
		return "error"
	default:
		return "none"
	}
}

var (
	// ErrNoSyncKey is returned when sync runs without a configured key.
	ErrNoSyncKey = errors.New("no sync key configured")
	// ErrInFlight is returned when a cycle is already running.
	ErrInFlight = errors.New("sync already in progress")
)

// Syncer coordinates sync cycles for one store. At most one cycle is in
// flight at a time; overlapping calls are rejected so the checkpoint write
// and dirty-clearing never race.
type Syncer struct {
	store      *store.Store
	client     *syncclient.Client
	inFlight   atomic.Bool
	lastResult atomic.Int32
}

// New creates a Syncer.
func New(st *store.Store, client *syncclient.Client) *Syncer {
	return &Syncer{store: st, client: client}
}

// IsSyncing reports whether a cycle is in flight.
func (s *Syncer) IsSyncing() bool {
	return s.inFlight.Load()
}

// LastResult returns the outcome of the most recent completed cycle.
func (s *Syncer) LastResult() Result {
	return Result(s.lastResult.Load())
}

// Sync runs one init-push-pull cycle. Transport failures abort the
// remainder of the cycle, leave dirty flags and the checkpoint at their
// pre-failure values, and surface as an error result; they never corrupt
// local state.
func (s *Syncer) Sync() error {
	state := s.store.SyncState()
	if state.SyncKey == "" {
		s.lastResult.Store(int32(ResultError))
		return ErrNoSyncKey
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrInFlight
	}
	defer s.inFlight.Store(false)

	err := s.cycle(state.SyncKey, state.DeviceID, state.LastServerSeq)
	if err != nil {
		slog.Warn("sync failed", "err", err)
		s.lastResult.Store(int32(ResultError))
		return err
	}
	s.lastResult.Store(int32(ResultSuccess))
	return nil
}

// Repair resets the checkpoint and re-pulls the entire remote change
// history, letting remote records overwrite local state wherever they win
// the LWW comparison. Pending local edits are pushed first so the change
// log holds them before any overwrite is evaluated.
func (s *Syncer) Repair() error {
	state := s.store.SyncState()
	if state.SyncKey == "" {
		s.lastResult.Store(int32(ResultError))
		return ErrNoSyncKey
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrInFlight
	}
	defer s.inFlight.Store(false)

	err := func() error {
		if err := s.client.Init(state.SyncKey, state.DeviceID); err != nil {
			return fmt.Errorf("init: %w", err)
		}
		if err := s.push(state.SyncKey, state.DeviceID); err != nil {
			return fmt.Errorf("push: %w", err)
		}
		if err := s.store.SetLastServerSeq(0); err != nil {
			return err
		}
		if err := s.pull(state.SyncKey, state.DeviceID, 0); err != nil {
			return fmt.Errorf("pull: %w", err)
		}
		return nil
	}()
	if err != nil {
		slog.Warn("repair failed", "err", err)
		s.lastResult.Store(int32(ResultError))
		return err
	}
	s.lastResult.Store(int32(ResultSuccess))
	return nil
}

// Flush pushes dirty records without pulling. Used by the periodic
// auto-sync trigger to bound how long local edits stay unsynced. A missing
// sync key or an in-flight cycle is a silent no-op.
func (s *Syncer) Flush() error {
	state := s.store.SyncState()
	if state.SyncKey == "" {
		return nil
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil
	}
	defer s.inFlight.Store(false)

	if err := s.push(state.SyncKey, state.DeviceID); err != nil {
		slog.Warn("flush failed", "err", err)
		return err
	}
	return nil
}

// AutoSync runs a full sync immediately, then flushes dirty records every
// interval until the context is cancelled. When pullEach is set, the
// interval pass runs a full cycle instead of a push-only flush.
func (s *Syncer) AutoSync(ctx context.Context, interval time.Duration, pullEach bool) {
	if err := s.Sync(); err != nil {
		slog.Warn("startup sync", "err", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pullEach {
				s.Sync()
			} else {
				s.Flush()
			}
		}
	}
}

func (s *Syncer) cycle(syncKey, deviceID string, afterSeq int64) error {
	if err := s.client.Init(syncKey, deviceID); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := s.push(syncKey, deviceID); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	if err := s.pull(syncKey, deviceID, afterSeq); err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	return nil
}

// push sends every currently-dirty record in one batch and clears the
// flags on exactly that snapshot. Records dirtied during the round-trip
// stay dirty. A failed push clears nothing.
func (s *Syncer) push(syncKey, deviceID string) error {
	snap := s.store.DirtySnapshot()
	if snap.Empty() {
		return nil
	}

	req := syncclient.PushRequest{SyncKey: syncKey, DeviceID: deviceID}
	for _, t := range snap.Todos {
		req.Todos = append(req.Todos, toTodoDTO(t))
	}
	for _, h := range snap.Habits {
		req.Habits = append(req.Habits, toHabitDTO(h))
	}
	for _, r := range snap.Rules {
		req.Rules = append(req.Rules, toRuleDTO(r))
	}
	for _, c := range snap.Completions {
		req.Completions = append(req.Completions, toCompletionDTO(c))
	}

	if _, err := s.client.Push(req); err != nil {
		return err
	}

	slog.Debug("pushed dirty records",
		"todos", len(snap.Todos), "habits", len(snap.Habits),
		"rules", len(snap.Rules), "completions", len(snap.Completions))
	return s.store.ClearDirty(snap)
}

// pull pages the change log strictly after the checkpoint, applies each
// change through the merge upserts, and persists the watermark after every
// page so a crash mid-pull does not redeliver applied pages.
func (s *Syncer) pull(syncKey, deviceID string, afterSeq int64) error {
	for {
		resp, err := s.client.Pull(syncclient.PullRequest{
			SyncKey:        syncKey,
			DeviceID:       deviceID,
			AfterServerSeq: afterSeq,
		})
		if err != nil {
			return err
		}

		if len(resp.Changes) == 0 {
			return s.store.SetLastServerSeq(resp.LatestServerSeq)
		}

		for _, ch := range resp.Changes {
			if err := s.apply(ch); err != nil {
				slog.Warn("apply remote change", "seq", ch.ServerSeq, "type", ch.EntityType, "err", err)
			}
			afterSeq = ch.ServerSeq
		}
		if err := s.store.SetLastServerSeq(afterSeq); err != nil {
			return err
		}

		if len(resp.Changes) < pullPageSize {
			return nil
		}
	}
}

// apply decodes one change by its declared entity kind and runs it through
// the matching merge upsert. Undecodable payloads and unknown kinds are
// reported and skipped; the rest of the page still applies.
func (s *Syncer) apply(ch syncclient.Change) error {
	switch ch.EntityType {
	case "todo":
		var d syncclient.TodoDTO
		if err := json.Unmarshal([]byte(ch.PayloadJSON), &d); err != nil {
			return fmt.Errorf("decode todo payload: %w", err)
		}
		_, err := s.store.ApplyRemoteTodo(todoFromDTO(d))
		return err
	case "habit":
		var d syncclient.HabitDTO
		if err := json.Unmarshal([]byte(ch.PayloadJSON), &d); err != nil {
			return fmt.Errorf("decode habit payload: %w", err)
		}
		_, err := s.store.ApplyRemoteHabit(habitFromDTO(d))
		return err
	case "rule":
		var d syncclient.HabitRuleDTO
		if err := json.Unmarshal([]byte(ch.PayloadJSON), &d); err != nil {
			return fmt.Errorf("decode rule payload: %w", err)
		}
		r, convErr := ruleFromDTO(d)
		if convErr != nil {
			slog.Warn("rule monthdays malformed, treating as inactive", "rule", d.ID, "err", convErr)
		}
		_, err := s.store.ApplyRemoteRule(r)
		return err
	case "completion":
		var d syncclient.HabitCompletionDTO
		if err := json.Unmarshal([]byte(ch.PayloadJSON), &d); err != nil {
			return fmt.Errorf("decode completion payload: %w", err)
		}
		_, err := s.store.ApplyRemoteCompletion(completionFromDTO(d))
		return err
	default:
		return fmt.Errorf("unsupported entity type %q", ch.EntityType)
	}
}
