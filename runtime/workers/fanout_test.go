package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chathub/domain/event"
	"chathub/mocks"
)

func TestEventFanout_Routes_Group_Envelopes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	fanout := NewEventFanout(slog.Default(), make(chan Envelope), registry)

	e := event.UserOffline{UserID: "alice"}
	registry.EXPECT().Broadcast(gomock.Any(), "chat:room-1", e, gomock.Any()).Times(1)

	fanout.Fanout(context.Background(), Envelope{Group: "chat:room-1", Event: e})
}

func TestEventFanout_Empty_Group_Means_Everyone(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	fanout := NewEventFanout(slog.Default(), make(chan Envelope), registry)

	e := event.UserOnline{}
	registry.EXPECT().BroadcastAll(gomock.Any(), e, gomock.Any()).Times(1)

	fanout.Fanout(context.Background(), Envelope{Event: e})
}

func TestEventFanout_Feeds_Permanent_Sinks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	sink := mocks.NewMockEventSink(ctrl)
	fanout := NewEventFanout(slog.Default(), make(chan Envelope), registry).Add(sink)

	e := event.UserOffline{UserID: "alice"}
	registry.EXPECT().Broadcast(gomock.Any(), "chat:room-1", e, gomock.Any()).Times(1)
	sink.EXPECT().Consume(gomock.Any(), e).Return(nil).Times(1)

	fanout.Fanout(context.Background(), Envelope{Group: "chat:room-1", Event: e})
}

func TestEventFanout_Run_Drains_Until_Cancel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	envelopes := make(chan Envelope, 2)
	fanout := NewEventFanout(slog.Default(), envelopes, registry)

	e := event.UserOffline{UserID: "alice"}
	delivered := make(chan struct{}, 2)
	registry.EXPECT().
		Broadcast(gomock.Any(), "chat:room-1", e, gomock.Any()).
		Do(func(context.Context, string, event.DomainEvent, any) { delivered <- struct{}{} }).
		Times(2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		req.NoError(fanout.Run(ctx))
		close(done)
	}()

	envelopes <- Envelope{Group: "chat:room-1", Event: e}
	envelopes <- Envelope{Group: "chat:room-1", Event: e}
	for range 2 {
		select {
		case <-delivered:
		case <-time.After(time.Second):
			t.Fatal("envelope was not fanned out in time")
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fanout did not stop on cancel")
	}
}
