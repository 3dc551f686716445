package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/discountcodes/discount-server-go/internal/config"
	"github.com/discountcodes/discount-server-go/internal/metrics"
	"github.com/discountcodes/discount-server-go/internal/model"
)

type StatsCounter interface {
	CountStats(ctx context.Context) (*model.CodeStats, error)
}

// StatsJob periodically publishes stored code counts as gauges.
type StatsJob struct {
	counter  StatsCounter
	interval time.Duration
	done     chan struct{}
	stopped  chan struct{}
}

func NewStatsJob(counter StatsCounter, interval time.Duration) *StatsJob {
	return &StatsJob{
		counter:  counter,
		interval: interval,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (j *StatsJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("stats job started")
}

// Stop ends the job and waits for a running refresh to finish.
func (j *StatsJob) Stop() {
	close(j.done)
	<-j.stopped
	log.Info().Msg("stats job stopped")
}

func (j *StatsJob) run() {
	defer close(j.stopped)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.refresh()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.refresh()
		}
	}
}

func (j *StatsJob) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), config.StoreOperationTimeout)
	defer cancel()

	stats, err := j.counter.CountStats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to count codes")
		return
	}

	metrics.SetStoredCodes(stats.Used, stats.Unused)
	log.Debug().
		Int("total", stats.Total).
		Int("used", stats.Used).
		Int("unused", stats.Unused).
		Msg("code stats refreshed")
}
