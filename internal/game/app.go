package game

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"chunkvault/internal/profiling"
)

// App runs a session at the configured tick rate until stopped.
type App struct {
	session  *Session
	log      logrus.FieldLogger
	limiter  *TickLimiter
	slowTick time.Duration
	lastTime time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewApp wraps s with a limiter running at rate ticks per second.
func NewApp(s *Session, rate int, slowTick time.Duration, log logrus.FieldLogger) *App {
	return &App{
		session:  s,
		log:      log,
		limiter:  NewTickLimiter(rate),
		slowTick: slowTick,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run ticks until Stop is called or maxTicks have run (0 means no limit).
// Tick errors are logged and do not end the loop.
func (a *App) Run(maxTicks int64) {
	defer close(a.done)
	a.lastTime = time.Now()
	for n := int64(0); maxTicks <= 0 || n < maxTicks; n++ {
		select {
		case <-a.stop:
			return
		default:
		}
		a.tick()
	}
}

func (a *App) tick() {
	profiling.ResetFrame()
	start := time.Now()
	dt := start.Sub(a.lastTime).Seconds()
	a.lastTime = start

	if err := a.session.Update(dt); err != nil {
		a.log.WithError(err).Error("tick failed")
	}

	if d := time.Since(start); a.slowTick > 0 && d > a.slowTick {
		a.log.WithFields(profiling.Fields(5)).
			WithField("duration", d).
			Warnf("Slow tick. Top tasks: %s", profiling.TopN(5))
	}

	a.limiter.Wait()
}

// Stop asks Run to return after the current tick.
func (a *App) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
}

// Done is closed when Run returns.
func (a *App) Done() <-chan struct{} { return a.done }
