package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/pscheid92/wagate/internal/domain"
)

const (
	saveTimeout = 5 * time.Second
	stopTimeout = 10 * time.Second
)

type storeCmd interface{ isStoreCmd() }

type baseStoreCmd struct{}

func (baseStoreCmd) isStoreCmd() {}

type listCmd struct {
	baseStoreCmd
	reply chan []domain.SessionRecord
}

type getCmd struct {
	baseStoreCmd
	id    string
	reply chan getResult
}

type getResult struct {
	record domain.SessionRecord
	found  bool
}

// mutateCmd applies fn to a copy of the records. fn reports whether it changed anything.
type mutateCmd struct {
	baseStoreCmd
	fn    func(records []domain.SessionRecord) ([]domain.SessionRecord, bool)
	reply chan mutateResult
}

type mutateResult struct {
	changed bool
	err     error
}

type stopCmd struct{ baseStoreCmd }

// Store is the actor-owned session list.
type Store struct {
	doc     domain.SessionDocument
	cmdCh   chan storeCmd
	done    chan struct{}
	records []domain.SessionRecord
}

var _ domain.SessionStore = (*Store)(nil)

// Open loads the document and starts the actor. A malformed document is returned as an error.
func Open(ctx context.Context, doc domain.SessionDocument) (*Store, error) {
	records, err := doc.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	s := &Store{
		doc:     doc,
		cmdCh:   make(chan storeCmd, 64),
		done:    make(chan struct{}),
		records: records,
	}
	go s.run()
	return s, nil
}

func (s *Store) run() {
	defer close(s.done)

	for cmd := range s.cmdCh {
		switch c := cmd.(type) {
		case listCmd:
			c.reply <- slices.Clone(s.records)
		case getCmd:
			idx := s.indexOf(c.id)
			if idx < 0 {
				c.reply <- getResult{}
				continue
			}
			c.reply <- getResult{record: s.records[idx], found: true}
		case mutateCmd:
			c.reply <- s.mutate(c.fn)
		case stopCmd:
			return
		}
	}
}

func (s *Store) mutate(fn func([]domain.SessionRecord) ([]domain.SessionRecord, bool)) mutateResult {
	next, changed := fn(slices.Clone(s.records))
	if !changed {
		return mutateResult{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := s.doc.Save(ctx, next); err != nil {
		slog.Error("Failed to persist sessions", "error", err)
		return mutateResult{err: fmt.Errorf("failed to persist sessions: %w", err)}
	}
	s.records = next
	return mutateResult{changed: true}
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.records, func(r domain.SessionRecord) bool { return r.ID == id })
}

func (s *Store) send(ctx context.Context, cmd storeCmd) error {
	select {
	case s.cmdCh <- cmd:
		return nil
	case <-s.done:
		return domain.ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, s *Store, reply chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-s.done:
		return zero, domain.ErrStoreClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (s *Store) List(ctx context.Context) ([]domain.SessionRecord, error) {
	reply := make(chan []domain.SessionRecord, 1)
	if err := s.send(ctx, listCmd{reply: reply}); err != nil {
		return nil, err
	}
	return await(ctx, s, reply)
}

func (s *Store) Get(ctx context.Context, id string) (domain.SessionRecord, bool, error) {
	reply := make(chan getResult, 1)
	if err := s.send(ctx, getCmd{id: id, reply: reply}); err != nil {
		return domain.SessionRecord{}, false, err
	}
	res, err := await(ctx, s, reply)
	return res.record, res.found, err
}

func (s *Store) apply(ctx context.Context, fn func([]domain.SessionRecord) ([]domain.SessionRecord, bool)) (bool, error) {
	reply := make(chan mutateResult, 1)
	if err := s.send(ctx, mutateCmd{fn: fn, reply: reply}); err != nil {
		return false, err
	}
	res, err := await(ctx, s, reply)
	if err != nil {
		return false, err
	}
	return res.changed, res.err
}

func (s *Store) AddIfAbsent(ctx context.Context, record domain.SessionRecord) (bool, error) {
	return s.apply(ctx, func(records []domain.SessionRecord) ([]domain.SessionRecord, bool) {
		if slices.ContainsFunc(records, func(r domain.SessionRecord) bool { return r.ID == record.ID }) {
			return records, false
		}
		return append(records, record), true
	})
}

func (s *Store) MarkReady(ctx context.Context, record domain.SessionRecord) error {
	_, err := s.apply(ctx, func(records []domain.SessionRecord) ([]domain.SessionRecord, bool) {
		idx := slices.IndexFunc(records, func(r domain.SessionRecord) bool { return r.ID == record.ID })
		if idx < 0 {
			record.Ready = true
			return append(records, record), true
		}
		if records[idx].Ready {
			return records, false
		}
		records[idx].Ready = true
		return records, true
	})
	return err
}

func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	return s.apply(ctx, func(records []domain.SessionRecord) ([]domain.SessionRecord, bool) {
		idx := slices.IndexFunc(records, func(r domain.SessionRecord) bool { return r.ID == id })
		if idx < 0 {
			return records, false
		}
		return slices.Delete(records, idx, idx+1), true
	})
}

// ResetReady clears every ready flag and always persists, so a restart
// begins from a consistent "nothing is ready" document.
func (s *Store) ResetReady(ctx context.Context) error {
	_, err := s.apply(ctx, func(records []domain.SessionRecord) ([]domain.SessionRecord, bool) {
		for i := range records {
			records[i].Ready = false
		}
		return records, true
	})
	return err
}

// Close stops the actor. Pending callers receive ErrStoreClosed.
func (s *Store) Close() error {
	select {
	case s.cmdCh <- stopCmd{}:
	case <-s.done:
		return nil
	}

	timer := time.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-s.done:
		return nil
	case <-timer.C:
		return errors.New("session store stop timed out")
	}
}
