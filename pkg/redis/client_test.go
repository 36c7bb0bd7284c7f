package redis

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/tablebite-backend/pkg/config"
)

func TestIncrWithTTLArmsExpiryOnFirstHit(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommands()
	client := &Client{cmd: fake}
	key := client.RateLimitKey("login", "ip", "1.2.3.4")

	for want := int64(1); want <= 3; want++ {
		count, err := client.IncrWithTTL(ctx, key, time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != want {
			t.Fatalf("expected count %d, got %d", want, count)
		}
	}
	if fake.ttls[key] != time.Minute {
		t.Fatalf("expected one minute window, got %s", fake.ttls[key])
	}
	if fake.expiries != 1 {
		t.Fatalf("expiry should be armed once, got %d", fake.expiries)
	}
	if fake.shaCalls == 0 {
		t.Fatal("expected the cached script to be tried first")
	}
}

func TestIncrWithTTLRejectsEmptyWindow(t *testing.T) {
	client := &Client{cmd: newFakeCommands()}
	if _, err := client.IncrWithTTL(context.Background(), "k", 0); err == nil {
		t.Fatal("expected error for zero window")
	}
}

func TestSetNXAndDel(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommands()}
	key := client.IdempotencyKey("user-1", "abc")

	ok, err := client.SetNX(ctx, key, "pending", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, key, "pending", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second SetNX to lose, ok=%v err=%v", ok, err)
	}
	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); !IsNil(err) {
		t.Fatalf("expected missing key after delete, got %v", err)
	}
	if err := client.Del(ctx); err != nil {
		t.Fatalf("empty del should be a no-op, got %v", err)
	}

	if err := client.Set(ctx, key, "done", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if v, err := client.GetDel(ctx, key); err != nil || v != "done" {
		t.Fatalf("expected GetDel to return the value, got %q %v", v, err)
	}
	if _, err := client.GetDel(ctx, key); !IsNil(err) {
		t.Fatalf("expected the key to be consumed, got %v", err)
	}
}

func TestKeyFamilies(t *testing.T) {
	client := &Client{}
	cases := map[string]string{
		client.IdempotencyKey("visitor:tok", "k1"):    "tb:idem:visitor:tok:k1",
		client.RateLimitKey("login", "user", "abc"):   "tb:rl:login:user:abc",
		client.AccessSessionKey("jti"):                "tb:access:jti",
		client.VisitorKey(" tok "):                    "tb:visitor:tok",
		client.RateLimitKey("register", "", "ip", ""): "tb:rl:register:ip",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", DB: 5, PoolSize: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 7 {
		t.Fatalf("url database should win, got db=%d pool=%d", opts.DB, opts.PoolSize)
	}

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 3, ReadTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache:6379" || opts.DB != 3 || opts.ReadTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := client.IncrWithTTL(context.Background(), "k", time.Second); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close without raw client should be a no-op, got %v", err)
	}
}

// Runs the window script against a real server when one is reachable.
func TestIncrWithTTLAgainstRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx := context.Background()
	client, err := New(ctx, config.RedisConfig{Address: addr, DialTimeout: time.Second}, nil)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer client.Close()

	key := client.RateLimitKey("test", uuid.NewString())
	defer client.Del(ctx, key)

	for want := int64(1); want <= 2; want++ {
		count, err := client.IncrWithTTL(ctx, key, 5*time.Second)
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if count != want {
			t.Fatalf("expected %d got %d", want, count)
		}
	}
	ttl, err := client.raw.PTTL(ctx, key).Result()
	if err != nil {
		t.Fatalf("pttl: %v", err)
	}
	if ttl <= 0 || ttl > 5*time.Second {
		t.Fatalf("expected live window, got %s", ttl)
	}
}

// fakeCommands keeps everything in maps and interprets the window script.
type fakeCommands struct {
	mu       sync.Mutex
	data     map[string]string
	counters map[string]int64
	ttls     map[string]time.Duration
	expiries int
	shaCalls int
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{
		data:     map[string]string{},
		counters: map[string]int64{},
		ttls:     map[string]time.Duration{},
	}
}

func (f *fakeCommands) window(keys []string, args []any) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := keys[0]
	f.counters[key]++
	if _, armed := f.ttls[key]; !armed {
		ms, ok := args[0].(int64)
		if !ok {
			return redis.NewCmdResult(nil, fmt.Errorf("unexpected ttl arg %T", args[0]))
		}
		f.ttls[key] = time.Duration(ms) * time.Millisecond
		f.expiries++
	}
	return redis.NewCmdResult(f.counters[key], nil)
}

func (f *fakeCommands) Eval(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return f.window(keys, args)
}

func (f *fakeCommands) EvalSha(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	f.mu.Lock()
	f.shaCalls++
	f.mu.Unlock()
	return f.window(keys, args)
}

func (f *fakeCommands) EvalRO(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return f.Eval(ctx, script, keys, args...)
}

func (f *fakeCommands) EvalShaRO(ctx context.Context, sha string, keys []string, args ...any) *redis.Cmd {
	return f.EvalSha(ctx, sha, keys, args...)
}

func (f *fakeCommands) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (f *fakeCommands) ScriptLoad(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("sha", nil)
}

func (f *fakeCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCommands) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) GetDel(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	delete(f.data, key)
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
