package leads

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/uluk20-22520/uluk-site/internal/store"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func newRepo(t *testing.T, deps RepositoryDeps) *Repository {
	t.Helper()
	if deps.Store == nil {
		deps.Store = store.NewMemory()
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return fixedNow }
	}
	repo, err := NewRepository(deps)
	require.NoError(t, err)
	return repo
}

func TestAppendWithEmptyComment(t *testing.T) {
	repo := newRepo(t, RepositoryDeps{})

	lead, err := repo.Append(context.Background(), Fields{
		Name:    "Айгуль",
		Phone:   "+996 700 000 000",
		Service: "Лендинг",
		Channel: "WhatsApp",
	}, "form")
	require.NoError(t, err)

	assert.Equal(t, "", lead.Comment)
	assert.Equal(t, fixedNow.UnixMilli(), lead.ID)
	assert.Equal(t, "2025-03-14T09:26:53.589Z", lead.Date)

	raw, err := json.Marshal(lead)
	require.NoError(t, err)
	assert.Equal(t,
		`{"name":"Айгуль","phone":"+996 700 000 000","service":"Лендинг","channel":"WhatsApp","comment":"","id":1741944413589,"date":"2025-03-14T09:26:53.589Z"}`,
		string(raw))
}

func TestAppendIDsStrictlyIncrease(t *testing.T) {
	mem := store.NewMemory()
	repo := newRepo(t, RepositoryDeps{Store: mem})
	ctx := context.Background()

	var ids []int64
	for range 3 {
		lead, err := repo.Append(ctx, Fields{Name: "n"}, "form")
		require.NoError(t, err)
		ids = append(ids, lead.ID)
	}
	assert.Equal(t, []int64{fixedNow.UnixMilli(), fixedNow.UnixMilli() + 1, fixedNow.UnixMilli() + 2}, ids)

	// A fresh process seeds from the stored maximum.
	restarted := newRepo(t, RepositoryDeps{Store: mem})
	lead, err := restarted.Append(ctx, Fields{Name: "n"}, "form")
	require.NoError(t, err)
	assert.Equal(t, fixedNow.UnixMilli()+3, lead.ID)
}

func TestAppendNormalizesFields(t *testing.T) {
	repo := newRepo(t, RepositoryDeps{MaxFieldLength: 5})

	lead, err := repo.Append(context.Background(), Fields{
		Name:    "  <b>Café</b>  ",
		Phone:   "1234567890",
		Comment: "A & B",
	}, "api")
	require.NoError(t, err)

	assert.Equal(t, "Café", lead.Name)
	assert.Equal(t, "12345", lead.Phone)
	assert.Equal(t, "A & B", lead.Comment)
}

func TestListPreservesOrderAndRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, RepositoryDeps{})

	a, err := repo.Append(ctx, Fields{Name: "a"}, "form")
	require.NoError(t, err)
	b, err := repo.Append(ctx, Fields{Name: "b"}, "form")
	require.NoError(t, err)
	c, err := repo.Append(ctx, Fields{Name: "c"}, "form")
	require.NoError(t, err)

	require.NoError(t, repo.Remove(ctx, b.ID))
	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Lead{a, c}, list)

	require.NoError(t, repo.Remove(ctx, b.ID))
	require.NoError(t, repo.Remove(ctx, 42))
	again, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, list, again)
}

func TestClearAndExport(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	repo := newRepo(t, RepositoryDeps{Store: mem})

	empty, err := repo.ExportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))

	_, err = repo.Append(ctx, Fields{Name: "a", Comment: "<x>"}, "form")
	require.NoError(t, err)

	exported, err := repo.ExportAll(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(exported), "[\n  {\n    \"name\": \"a\""))

	require.NoError(t, repo.Clear(ctx))
	_, err = mem.Get(ctx, store.LeadsKey)
	assert.True(t, store.IsNotFound(err))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCorruptListRefusesWrites(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Put(ctx, store.LeadsKey, []byte("{oops")))
	repo := newRepo(t, RepositoryDeps{Store: mem})

	_, err := repo.Append(ctx, Fields{Name: "a"}, "form")
	assert.ErrorIs(t, err, ErrCorrupt)

	raw, err := mem.Get(ctx, store.LeadsKey)
	require.NoError(t, err)
	assert.Equal(t, "{oops", string(raw))
}

func TestConcurrentAppendsKeepEveryLead(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, RepositoryDeps{})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Append(ctx, Fields{Name: "n"}, "form")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 20)
	seen := map[int64]bool{}
	for _, l := range list {
		assert.False(t, seen[l.ID])
		seen[l.ID] = true
	}
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, Lead) error { return errors.New("offline") }

func TestNotifierFailureIsLoggedOnly(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := newRepo(t, RepositoryDeps{Notifier: failingNotifier{}, Logger: zap.New(core)})

	_, err := repo.Append(context.Background(), Fields{Name: "n"}, "form")
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("lead notification failed").Len())
}

func TestPubSubNotifierPublishesLead(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	topic, err := client.CreateTopic(ctx, "leads")
	require.NoError(t, err)

	notifier, err := NewPubSubNotifier(topic)
	require.NoError(t, err)
	defer notifier.Stop()

	repo := newRepo(t, RepositoryDeps{Notifier: notifier})
	lead, err := repo.Append(ctx, Fields{Name: "Бакыт", Phone: "1"}, "form")
	require.NoError(t, err)

	messages := srv.Messages()
	require.Len(t, messages, 1)
	var payload Lead
	require.NoError(t, json.Unmarshal(messages[0].Data, &payload))
	assert.Equal(t, lead, payload)
	assert.Equal(t, EventLeadCreated, messages[0].Attributes["event"])
}

func TestNewPubSubNotifierRequiresTopic(t *testing.T) {
	_, err := NewPubSubNotifier(nil)
	assert.Error(t, err)
}
