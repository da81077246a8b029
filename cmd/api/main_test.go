package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type stubPurger struct {
	calls  int
	maxAge time.Duration
	err    error
}

func (s *stubPurger) PurgeIdle(_ context.Context, olderThan time.Duration) (int64, error) {
	s.calls++
	s.maxAge = olderThan
	return 0, s.err
}

func TestPurgeSessionsRunsOnceBeforeStopping(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	purger := &stubPurger{}
	purgeSessions(ctx, purger, 48*time.Hour, zap.NewNop())

	if purger.calls != 1 {
		t.Fatalf("expected one purge before stopping, got %d", purger.calls)
	}
	if purger.maxAge != 48*time.Hour {
		t.Fatalf("expected max age 48h, got %s", purger.maxAge)
	}
}

func TestPurgeSessionsSurvivesErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	purger := &stubPurger{err: errors.New("db down")}
	purgeSessions(ctx, purger, time.Hour, zap.NewNop())

	if purger.calls != 1 {
		t.Fatalf("expected one purge attempt, got %d", purger.calls)
	}
}
