//go:build integration
// +build integration

package redisstore_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nbsync/nbsync/internal/model"
	"github.com/nbsync/nbsync/internal/services"
	"github.com/nbsync/nbsync/internal/store"
	"github.com/nbsync/nbsync/internal/store/redisstore"
)

var testStore store.Store

// TestMain starts one Redis container for the whole package.
func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Printf("failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Printf("failed to get container host: %v\n", err)
		os.Exit(1)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		fmt.Printf("failed to get mapped port: %v\n", err)
		os.Exit(1)
	}

	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	client, err := redisstore.Open(ctx, url, redisstore.Options{DialTimeout: 5 * time.Second})
	if err != nil {
		fmt.Printf("failed to open redis store: %v\n", err)
		os.Exit(1)
	}
	testStore = redisstore.New(client, 24*time.Hour)

	code := m.Run()

	_ = testStore.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

// TestFullFlowAgainstRedis replays the whole teacher/student exchange against
// a real Redis to catch behavior miniredis cannot model.
func TestFullFlowAgainstRedis(t *testing.T) {
	ctx := context.Background()
	sessions := services.NewSessionService(testStore, 6)
	sync := services.NewSyncService(testStore, time.Hour)

	code, err := sessions.Create(ctx, "teacher-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ok, err := sessions.Join(ctx, code, "student-1"); err != nil || !ok {
		t.Fatalf("join: ok=%v err=%v", ok, err)
	}

	sub, err := testStore.Notifier().Subscribe(ctx, code)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer func() { _ = sub.Close() }()

	ts, err := sync.Push(ctx, code, "cell_1", json.RawMessage(`"x=1"`), model.DefaultMeta(), 0)
	if err != nil {
		t.Fatalf("push: %v", err)
	}

	select {
	case n := <-sub.C():
		if n.Type != model.NotifyUpdateAvailable || n.CellID != "cell_1" {
			t.Fatalf("unexpected notification %+v", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no notification over real pub/sub")
	}

	content, err := sync.RequestSync(ctx, code, "cell_1")
	if err != nil {
		t.Fatalf("request sync: %v", err)
	}
	if string(content.Content) != `"x=1"` {
		t.Fatalf("content = %s", content.Content)
	}

	changed, err := sync.ListChangedSince(ctx, code, ts)
	if err != nil || len(changed) != 1 {
		t.Fatalf("changes: %v %v", changed, err)
	}

	if err := sessions.End(ctx, code); err != nil {
		t.Fatalf("end: %v", err)
	}
	status, err := sync.GetStatus(ctx, code, "cell_1")
	if err != nil {
		t.Fatalf("status after end: %v", err)
	}
	if status.Available {
		t.Fatal("pending update survived session end")
	}
}

// TestHashEntriesSurviveSessionEnd verifies the namespaces really are
// disjoint on a live server.
func TestHashEntriesSurviveSessionEnd(t *testing.T) {
	ctx := context.Background()
	sessions := services.NewSessionService(testStore, 6)
	hash := services.NewHashSyncService(testStore, time.Hour)

	code, err := sessions.Create(ctx, "teacher-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	digest, err := hash.StoreByIdentity(ctx, "cell_1", "2026-01-15T10:00:00Z", json.RawMessage(`"x"`), 0)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := sessions.End(ctx, code); err != nil {
		t.Fatalf("end: %v", err)
	}
	entry, err := hash.FetchByDigest(ctx, digest)
	if err != nil || entry == nil {
		t.Fatalf("hash entry lost after session end: %v %v", entry, err)
	}
}
