package client

import (
	"github.com/sirupsen/logrus"
	"github.com/trackpoint/backend/internal/dto"
)

type Clients interface {
	RabbitMQClient() RabbitClient
}

type clients struct {
	rabbitClient RabbitClient
}

func (c clients) RabbitMQClient() RabbitClient {
	return c.rabbitClient
}

// NewClients connects the optional collaborators. A missing RabbitMQ broker
// is not fatal; the feed falls back to in-process fanout.
func NewClients(cfg dto.Config) Clients {
	rabbitClient, err := NewRabbitMQClient(cfg)
	if err != nil {
		logrus.Errorf("Failed to connect to RabbitMQ: %v", err)
		rabbitClient = nil
	}

	return &clients{
		rabbitClient: rabbitClient,
	}
}
