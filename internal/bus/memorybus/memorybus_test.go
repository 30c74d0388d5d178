package memorybus

import (
	"context"
	"testing"
	"time"

	"github.com/kosheduteam/signalengine/internal/bus"
)

func TestPublishSubscribe_DeliversToSubscriber(t *testing.T) {
	b := New()
	ch, unsubscribe, err := b.Subscribe(context.Background(), bus.ChannelSignals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer unsubscribe()

	if err := b.Publish(context.Background(), bus.ChannelSignals, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}

	select {
	case msg := <-ch:
		if string(msg.Payload) != `{"ok":true}` {
			t.Errorf("payload mismatch: %s", msg.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestPublishSubscribe_OtherChannelsNotDelivered(t *testing.T) {
	b := New()
	ch, unsubscribe, _ := b.Subscribe(context.Background(), bus.ChannelSignals)
	defer unsubscribe()

	b.Publish(context.Background(), bus.ChannelPrices, []byte(`{}`))

	select {
	case msg := <-ch:
		t.Fatalf("unexpected delivery on wrong channel: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe_ClosesChannelAndStopsDelivery(t *testing.T) {
	b := New()
	ch, unsubscribe, _ := b.Subscribe(context.Background(), bus.ChannelAlerts)
	unsubscribe()

	b.Publish(context.Background(), bus.ChannelAlerts, []byte(`{}`))

	_, ok := <-ch
	if ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
}

func TestPublish_MultipleSubscribersAllReceive(t *testing.T) {
	b := New()
	ch1, unsub1, _ := b.Subscribe(context.Background(), bus.ChannelEvents)
	ch2, unsub2, _ := b.Subscribe(context.Background(), bus.ChannelEvents)
	defer unsub1()
	defer unsub2()

	b.Publish(context.Background(), bus.ChannelEvents, []byte(`{"n":1}`))

	for _, ch := range []<-chan bus.Message{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for fan-out delivery")
		}
	}
}
