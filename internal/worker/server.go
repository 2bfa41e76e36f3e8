package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/repository"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/service"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/tasks"
)

// WorkerServer runs the background side of the engine: bid audit
// persistence, notification dispatch, and the periodic auction sweep.
type WorkerServer struct {
	server   *asynq.Server
	log      *logrus.Entry
	bids     repository.BidRepository
	auctions *service.AuctionService
}

func NewWorkerServer(redisOpt asynq.RedisClientOpt, bids repository.BidRepository, auctions *service.AuctionService, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{
		server:   server,
		log:      logEntry,
		bids:     bids,
		auctions: auctions,
	}
}

// Start runs the worker server. Call it in its own goroutine.
func (ws *WorkerServer) Start() {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeBidAudit, NewBidAuditHandler(ws.bids).ProcessTask)
	mux.HandleFunc(tasks.TypeNotifyDispatch, NewNotificationHandler().ProcessTask)
	mux.HandleFunc(tasks.TypeAuctionSweep, NewAuctionSweepHandler(ws.auctions).ProcessTask)

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		} else {
			ws.log.Info("Worker server stopped.")
		}
	}
}

// Shutdown drains and stops the worker server.
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
