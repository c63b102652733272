package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) Publish(topic, event string, payload any) error {
	args := m.Called(topic, event, payload)
	return args.Error(0)
}

type EventMirrorMock struct {
	mock.Mock
}

func (m *EventMirrorMock) PublishEvent(ctx context.Context, routingKey, eventName string, payload any) error {
	args := m.Called(ctx, routingKey, eventName, payload)
	return args.Error(0)
}
