package task

import (
	"context"
	"errors"
	"log"
	"time"

	qport "github.com/MYCE-Refactoring/myce-chat/internal/infrastructure/queue/port"
	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"
)

// SweepIdleAdminsTaskType is the queue task name for one idle-admin sweep pass.
const SweepIdleAdminsTaskType = "chat:sweep_idle_admins"

// SweepQueue is the dedicated low-weight queue the sweep runs on, so bursts of
// chat traffic never starve it and it never starves chat traffic.
const SweepQueue = "sweep"

// RegisterSweepIdleAdminsTask binds the sweep handler to the worker server.
// The payload is empty: every execution scans the full idle set.
func RegisterSweepIdleAdminsTask(srv qport.Server, sweep *usecase.SweepIdleAdminsUseCase) {
	srv.Register(SweepIdleAdminsTaskType, func(ctx context.Context, _ qport.Task) error {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		released, err := sweep.Execute(ctx)
		if err != nil {
			return err
		}
		if released > 0 {
			log.Printf("[sweep] released %d idle-admin rooms", released)
		}
		return nil
	})
}

// StartSweepLoop enqueues the sweep task on every tick until ctx is canceled.
// The unique window collapses enqueues from concurrent instances to a single
// execution per interval, so running the loop on every node is safe.
func StartSweepLoop(ctx context.Context, client qport.Client, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, err := client.Enqueue(ctx, qport.Task{Type: SweepIdleAdminsTaskType}, qport.EnqueueOption{
					Queue:     SweepQueue,
					UniqueTTL: interval,
				})
				if err != nil && !errors.Is(err, qport.ErrDuplicate) {
					log.Printf("[sweep] enqueue: %v", err)
				}
			}
		}
	}()
}
