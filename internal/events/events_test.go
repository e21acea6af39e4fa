package events

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestBroker_DeliversToSubscribers(t *testing.T) {
	b := NewBroker(4)
	a, cancelA := b.Subscribe()
	c, cancelC := b.Subscribe()
	defer cancelA()
	defer cancelC()

	ev := New(TypeBulkProgress, map[string]int{"completed": 1, "total": 3})
	if err := b.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	for _, ch := range []<-chan Event{a, c} {
		got := <-ch
		if got.ID != ev.ID || got.Type != TypeBulkProgress {
			t.Errorf("received %+v", got)
		}
	}
}

func TestBroker_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewBroker(1)
	ch, cancel := b.Subscribe()
	defer cancel()
	for i := 0; i < 5; i++ {
		b.Publish(context.Background(), New(TypeCardMoved, nil))
	}
	if len(ch) != 1 {
		t.Errorf("buffered = %d, want 1", len(ch))
	}
}

func TestBroker_UnsubscribeClosesOnce(t *testing.T) {
	b := NewBroker(0)
	ch, cancel := b.Subscribe()
	if b.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d", b.Subscribers())
	}
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
	if b.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d after cancel", b.Subscribers())
	}
	b.Publish(context.Background(), New(TypeCardMoved, nil))
}

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, Event) error { return f.err }

func TestFanout_JoinsErrors(t *testing.T) {
	errA := errors.New("a down")
	errB := errors.New("b down")
	b := NewBroker(1)
	ch, cancel := b.Subscribe()
	defer cancel()

	f := Fanout{failingPublisher{errA}, b, nil, Nop{}, failingPublisher{errB}}
	err := f.Publish(context.Background(), New(TypeBulkCompleted, nil))
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Fanout error = %v, want both", err)
	}
	if len(ch) != 1 {
		t.Error("healthy publisher should still receive the event")
	}
	if err := (Fanout{Nop{}}).Publish(context.Background(), Event{}); err != nil {
		t.Errorf("Nop fanout = %v", err)
	}
}

func TestRedisPublisher_Channel(t *testing.T) {
	p := NewRedisPublisher(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "hirepipe:")
	defer p.Close()
	if got := p.Channel(TypeBulkCompleted); got != "hirepipe:bulk.completed" {
		t.Errorf("Channel() = %q", got)
	}
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-url")
	if err == nil || !strings.Contains(err.Error(), "redis.ParseURL") {
		t.Errorf("NewRedisClient(bad) = %v", err)
	}
}
