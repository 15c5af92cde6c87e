// Package scheduler runs the periodic jobs of the platform.
package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/acanas/swad-core-sub004/core"
)

// DefaultOpenGroupsSpec checks every minute for group types whose opening time has come.
const DefaultOpenGroupsSpec = "@every 1m"

// GroupOpener opens the groups of the types whose opening time has passed.
type GroupOpener interface {
	OpenGroupsAutomatically(ctx context.Context, now time.Time) (int, error)
}

type Scheduler struct {
	cron   *cron.Cron
	logger core.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// cronLogger adapts core.Logger to the logger expected by cron.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("scheduler: "+msg, kvMap(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("scheduler: "+msg, err, kvMap(keysAndValues))
}

func kvMap(kv []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			m[k] = kv[i+1]
		}
	}
	return m
}

// New schedules the jobs enabled in conf. The scheduler does nothing until Start.
func New(conf *core.Config, logger core.Logger, groups GroupOpener) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	spec := conf.Scheduler.OpenGroupsSpec
	if spec == "" {
		spec = DefaultOpenGroupsSpec
	}
	if _, err := s.cron.AddFunc(spec, s.openGroupsJob(groups)); err != nil {
		cancel()
		return nil, errors.Wrapf(err, "scheduling group opening %q", spec)
	}
	return s, nil
}

func (s *Scheduler) openGroupsJob(groups GroupOpener) func() {
	return func() {
		n, err := groups.OpenGroupsAutomatically(s.ctx, time.Now().UTC())
		if err != nil {
			s.logger.Error("opening groups", err)
			return
		}
		if n > 0 {
			s.logger.Info("groups opened", map[string]interface{}{"types": n})
		}
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling jobs and waits for the running ones until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce runs every job immediately, in order.
func (s *Scheduler) RunOnce() {
	for _, e := range s.cron.Entries() {
		e.Job.Run()
	}
}
