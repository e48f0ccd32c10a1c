package models

import "time"

type HealthCheck struct {
	Status    string            `json:"status"`
	Model     string            `json:"model"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Queue     *QueueStats       `json:"queue,omitempty"`
}

type QueueStats struct {
	Name      string `json:"name"`
	Messages  int    `json:"messages"`
	Consumers int    `json:"consumers"`
}
