package authz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestInvalidationPropagatesAcrossClients(t *testing.T) {
	mr := miniredis.RunT(t)

	listenClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer listenClient.Close()
	writerClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer writerClient.Close()

	store := &fakeStore{mapping: Mapping{}}
	cache := NewCache(store, testLogger(), 0)
	if _, err := cache.Mapping(context.Background()); err != nil {
		t.Fatalf("populate cache: %v", err)
	}

	notified := make(chan struct{}, 1)
	cache.Subscribe(func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewInvalidator(listenClient, cache, testLogger())
	go func() {
		_ = listener.Listen(ctx)
	}()

	// Give the subscription a moment to register before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if n, err := writerClient.PubSubNumSub(ctx, InvalidationChannel).Result(); err == nil && n[InvalidationChannel] > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("listener never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Simulate another process editing role permissions.
	writer := NewInvalidator(writerClient, NewCache(store, testLogger(), 0), testLogger())
	writer.Publish(ctx)

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("expected invalidation signal to reach the listener")
	}

	if _, loaded := cache.Snapshot(); loaded {
		t.Fatal("expected cache to be emptied by the remote invalidation")
	}
}

func TestPublishInvalidatesLocallyWithoutRedis(t *testing.T) {
	store := &fakeStore{mapping: Mapping{}}
	cache := NewCache(store, testLogger(), 0)
	if _, err := cache.Mapping(context.Background()); err != nil {
		t.Fatalf("populate cache: %v", err)
	}

	inv := NewInvalidator(nil, cache, testLogger())
	inv.Publish(context.Background())

	if _, loaded := cache.Snapshot(); loaded {
		t.Fatal("expected local invalidation even without a redis client")
	}
}
