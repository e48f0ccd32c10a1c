package queue

import (
	"fmt"

	"github.com/phambaophuc/alt-text-relay/internal/models"
)

// Stats reports the depth of the batch event queue. A nil service is not
// configured and reports nil stats.
func (q *QueueService) Stats() (*models.QueueStats, error) {
	if q == nil {
		return nil, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	queueInfo, err := q.channel.QueueInspect(q.queueName)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return &models.QueueStats{
		Name:      queueInfo.Name,
		Messages:  queueInfo.Messages,
		Consumers: queueInfo.Consumers,
	}, nil
}

// HealthCheck checks if RabbitMQ is available
func (q *QueueService) HealthCheck() string {
	if q == nil {
		return models.StatusNotConfigured
	}
	if q.conn == nil || q.conn.IsClosed() {
		return "unhealthy: connection closed"
	}

	if q.channel == nil {
		return "unhealthy: channel not available"
	}

	return models.StatusHealthy
}
