package service

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"skillduel/internal/repository"
)

const reaperBatchSize = 100

// Reaper periodically force-closes rooms past their deadline. It reuses the
// finalizer's guarded transitions, so a sweep racing with a player-triggered
// finalize still closes each room exactly once.
type Reaper struct {
	roomRepo  repository.RoomRepo
	finalizer *Finalizer
	clock     clockwork.Clock
	interval  time.Duration
	scheduler gocron.Scheduler
}

func NewReaper(roomRepo repository.RoomRepo, finalizer *Finalizer, clock clockwork.Clock, interval time.Duration) *Reaper {
	return &Reaper{
		roomRepo:  roomRepo,
		finalizer: finalizer,
		clock:     clock,
		interval:  interval,
	}
}

// Start schedules the periodic sweep.
func (r *Reaper) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler(gocron.WithClock(r.clock))
	if err != nil {
		return err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			if _, err := r.Sweep(ctx); err != nil {
				log.Error().Err(err).Msg("reaper sweep failed")
			}
		}),
	)
	if err != nil {
		return err
	}

	sched.Start()
	r.scheduler = sched
	log.Info().Dur("interval", r.interval).Msg("expiry reaper started")
	return nil
}

// Stop shuts the scheduler down.
func (r *Reaper) Stop() error {
	if r.scheduler == nil {
		return nil
	}
	return r.scheduler.Shutdown()
}

// Sweep closes every timed-out room it finds and returns how many rooms
// this sweep transitioned.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	rooms, err := r.roomRepo.ListTimedOut(ctx, r.clock.Now(), reaperBatchSize)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, room := range rooms {
		won, err := r.finalizer.ReapIfTimedOut(ctx, room)
		if err != nil {
			log.Error().Err(err).Str("duel_id", room.ID).Msg("failed to reap room")
			continue
		}
		if won {
			reaped++
		}
	}

	if reaped > 0 {
		log.Info().Int("reaped", reaped).Int("candidates", len(rooms)).Msg("reaper sweep done")
	}
	return reaped, nil
}
