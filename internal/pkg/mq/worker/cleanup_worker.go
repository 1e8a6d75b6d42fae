package worker

import (
	"context"
	"encoding/json"

	"github.com/iseelabs/isee/internal/pkg/logger"
	"github.com/iseelabs/isee/internal/pkg/mq"
	"github.com/iseelabs/isee/internal/pkg/transfer"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// CleanupQueueName receives remote objects that no longer have (or never got)
// a corresponding media record: commit failures after a successful transfer,
// video deletions, and user-cascade deletions all feed it.
const CleanupQueueName = "remote_cleanup_queue"

// CleanupTask names one remote object to delete.
type CleanupTask struct {
	RemotePath string `json:"remote_path"`
	Reason     string `json:"reason"`
}

// CleanupWorker garbage-collects orphaned remote objects.
type CleanupWorker struct {
	mqClient *mq.RabbitMQClient
	client   transfer.Client
}

func NewCleanupWorker(mqClient *mq.RabbitMQClient, client transfer.Client) *CleanupWorker {
	return &CleanupWorker{mqClient: mqClient, client: client}
}

// Start declares the queue and begins consuming. Fatal on broker errors
// because a backend without the GC loop silently reopens the orphan gap.
func (w *CleanupWorker) Start() {
	if _, err := w.mqClient.DeclareQueue(CleanupQueueName); err != nil {
		logger.Fatal("Failed to declare cleanup queue", zap.Error(err))
	}
	if err := w.mqClient.Consume(CleanupQueueName, w.handle); err != nil {
		logger.Fatal("Failed to start cleanup consumer", zap.Error(err))
	}
	logger.Info("Remote cleanup worker started")
}

func (w *CleanupWorker) handle(msg amqp.Delivery) {
	var task CleanupTask
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		logger.Error("Failed to unmarshal cleanup task", zap.Error(err))
		_ = msg.Nack(false, false) // unparsable, drop
		return
	}

	ctx := context.Background()
	session, err := w.client.Open(ctx)
	if err != nil {
		logger.Error("Cleanup worker cannot reach remote storage", zap.Error(err))
		_ = msg.Nack(false, true) // requeue until storage is back
		return
	}
	defer session.Close()

	if err := session.Remove(ctx, task.RemotePath); err != nil {
		// The object may already be gone (aborted before any byte landed).
		logger.Warn("Failed to remove remote object",
			zap.String("remote_path", task.RemotePath),
			zap.String("reason", task.Reason),
			zap.Error(err))
		_ = msg.Ack(false)
		return
	}

	logger.Info("Removed orphaned remote object",
		zap.String("remote_path", task.RemotePath),
		zap.String("reason", task.Reason))
	_ = msg.Ack(false)
}

// EnqueueCleanup publishes a cleanup task; best-effort, failures are logged
// and the orphan is left for manual collection.
func EnqueueCleanup(mqClient *mq.RabbitMQClient, remotePath, reason string) {
	if mqClient == nil {
		logger.Warn("No MQ client configured, leaving remote object orphaned",
			zap.String("remote_path", remotePath), zap.String("reason", reason))
		return
	}
	body, err := json.Marshal(CleanupTask{RemotePath: remotePath, Reason: reason})
	if err != nil {
		logger.Error("Failed to marshal cleanup task", zap.Error(err))
		return
	}
	if err := mqClient.Publish(CleanupQueueName, body); err != nil {
		logger.Error("Failed to enqueue cleanup task",
			zap.String("remote_path", remotePath), zap.Error(err))
	}
}
