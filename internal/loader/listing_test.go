package loader

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
)

func TestListingSingleFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	listing := NewListing(func(ctx context.Context, page func([]string)) ([]string, error) {
		calls.Add(1)
		page([]string{"bulbasaur", "ivysaur"})
		<-release
		page([]string{"venusaur"})
		return []string{"bulbasaur", "ivysaur", "venusaur"}, nil
	}, TableOptions{Kind: "species"})

	if !listing.Request() {
		t.Fatalf("首次请求应启动 worker")
	}
	for i := 0; i < 10; i++ {
		if listing.Request() {
			t.Fatalf("进行中的列表请求应为 no-op")
		}
	}
	if _, ok := listing.Names(); ok {
		t.Fatalf("完成前不应有结果")
	}
	if !listing.InFlight() {
		t.Fatalf("应处于进行中")
	}

	close(release)
	listing.Wait()

	names, ok := listing.Names()
	if !ok || !reflect.DeepEqual(names, []string{"bulbasaur", "ivysaur", "venusaur"}) {
		t.Fatalf("列表不符: %v %v", names, ok)
	}
	if listing.Fetched() != 3 {
		t.Fatalf("分页计数不符: %d", listing.Fetched())
	}
	if calls.Load() != 1 {
		t.Fatalf("期望一次拉取，实际 %d", calls.Load())
	}
	if listing.InFlight() {
		t.Fatalf("完成后应清除进行中标志")
	}
}

func TestListingNamesFailsOverWhenLocked(t *testing.T) {
	listing := NewListing(func(context.Context, func([]string)) ([]string, error) {
		return []string{"a"}, nil
	}, TableOptions{})
	listing.Request()
	listing.Wait()

	listing.mu.Lock()
	_, ok := listing.Names()
	listing.mu.Unlock()
	if ok {
		t.Fatalf("锁被占用时应立即返回 false")
	}
	if _, ok := listing.Names(); !ok {
		t.Fatalf("释放锁后应返回结果")
	}
}

func TestListingErrorGoesToSink(t *testing.T) {
	sink := NewErrorSink()
	boom := errors.New("page 2 failed")
	listing := NewListing(func(context.Context, func([]string)) ([]string, error) {
		return nil, boom
	}, TableOptions{Kind: "move", Errors: sink})

	listing.Request()
	listing.Wait()

	if _, ok := listing.Names(); ok {
		t.Fatalf("失败时不应发布结果")
	}
	errs := sink.Drain()
	if len(errs) != 1 || !errors.Is(errs[0], boom) {
		t.Fatalf("错误应进入 sink: %v", errs)
	}
	if !listing.Request() {
		t.Fatalf("失败后应允许再次请求")
	}
	listing.Wait()
}
