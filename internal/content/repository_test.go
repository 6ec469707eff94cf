package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/uluk20-22520/uluk-site/internal/store"
)

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingStore) Put(context.Context, string, []byte) error   { return f.err }

func newRepo(t *testing.T, s store.Store, defaults DefaultSource) *Repository {
	t.Helper()
	repo, err := NewRepository(RepositoryDeps{Store: s, Defaults: defaults})
	require.NoError(t, err)
	return repo
}

func sampleDocument() Document {
	return Document{
		Hero:    Hero{Tagline: "Сайты <быстро>", Subtitle: "s", CTA: "Go"},
		Company: Company{Phone: "+996 555", Email: "a@b.c"},
		Services: []Service{
			{Icon: "🚀", Title: "Лендинги", Desc: "d"},
		},
		Cases:        []Case{},
		Testimonials: nil,
		FAQ:          []FAQItem{{Q: "q", A: "a"}},
	}
}

func TestNewRepositoryRequiresStore(t *testing.T) {
	_, err := NewRepository(RepositoryDeps{})
	assert.ErrorIs(t, err, ErrStoreMissing)
}

func TestImportExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, store.NewMemory(), NoDefault{})
	doc := sampleDocument()

	exported, err := Export(doc)
	require.NoError(t, err)
	assert.Contains(t, string(exported), "\n  \"hero\": {")
	assert.Contains(t, string(exported), `"cases": []`)
	assert.NotContains(t, string(exported), "testimonials")
	assert.Contains(t, string(exported), "<быстро>")

	imported, err := repo.Import(ctx, exported)
	require.NoError(t, err)
	if diff := cmp.Diff(doc, imported); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	loaded, origin := repo.Load(ctx)
	assert.Equal(t, OriginStore, origin)
	if diff := cmp.Diff(doc, loaded); diff != "" {
		t.Fatalf("stored mismatch (-want +got):\n%s", diff)
	}
	assert.NotNil(t, loaded.Cases)
	assert.Nil(t, loaded.Testimonials)
}

func TestExportFieldOrder(t *testing.T) {
	raw, err := Export(Document{
		FAQ:     []FAQItem{{Q: "q", A: "a"}},
		Hero:    Hero{Tagline: "t"},
		Company: Company{Name: "n"},
	})
	require.NoError(t, err)
	s := string(raw)
	assert.Less(t, strings.Index(s, `"hero"`), strings.Index(s, `"company"`))
	assert.Less(t, strings.Index(s, `"company"`), strings.Index(s, `"faq"`))
	assert.Less(t, strings.Index(s, `"tagline"`), strings.Index(s, `"subtitle"`))
}

func TestImportInvalidJSONLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	repo := newRepo(t, mem, NoDefault{})
	require.NoError(t, repo.Save(ctx, sampleDocument()))

	_, err := repo.Import(ctx, []byte(`{"hero": {`))
	var importErr *ImportError
	require.ErrorAs(t, err, &importErr)

	doc, origin := repo.Load(ctx)
	assert.Equal(t, OriginStore, origin)
	assert.Equal(t, "Сайты <быстро>", doc.Hero.Tagline)
}

func TestDecodeIsLenient(t *testing.T) {
	doc, err := Decode([]byte(`{"hero":"x","about":{"headline":"A"},"services":[{"title":"T","desc":5}]}`))
	require.NoError(t, err)
	assert.Equal(t, Hero{}, doc.Hero)
	assert.Equal(t, "A", doc.About.Headline)
	require.Len(t, doc.Services, 1)
	assert.Equal(t, "T", doc.Services[0].Title)

	doc, err = Decode([]byte(`[1,2,3]`))
	require.NoError(t, err)
	assert.Equal(t, Document{}, doc)

	_, err = Decode([]byte(``))
	assert.Error(t, err)
}

func TestLoadFallbackChain(t *testing.T) {
	ctx := context.Background()

	t.Run("default when store empty", func(t *testing.T) {
		repo := newRepo(t, store.NewMemory(), EmbeddedDefault{})
		doc, origin := repo.Load(ctx)
		assert.Equal(t, OriginDefault, origin)
		assert.NotEmpty(t, doc.Hero.Tagline)
		assert.NotEmpty(t, doc.Services)
	})

	t.Run("default when stored value is corrupt", func(t *testing.T) {
		mem := store.NewMemory()
		require.NoError(t, mem.Put(ctx, store.ContentKey, []byte("{not json")))
		core, logs := observer.New(zap.ErrorLevel)
		repo, err := NewRepository(RepositoryDeps{Store: mem, Logger: zap.New(core)})
		require.NoError(t, err)

		_, origin := repo.Load(ctx)
		assert.Equal(t, OriginDefault, origin)
		assert.Equal(t, 1, logs.FilterMessage("stored content is not valid JSON").Len())
	})

	t.Run("default when stored value is null", func(t *testing.T) {
		mem := store.NewMemory()
		require.NoError(t, mem.Put(ctx, store.ContentKey, []byte("null")))
		repo := newRepo(t, mem, EmbeddedDefault{})
		_, origin := repo.Load(ctx)
		assert.Equal(t, OriginDefault, origin)
	})

	t.Run("empty when store unreadable and no default", func(t *testing.T) {
		repo := newRepo(t, failingStore{err: errors.New("boom")}, NoDefault{})
		doc, origin := repo.Load(ctx)
		assert.Equal(t, OriginEmpty, origin)
		assert.Equal(t, Document{}, doc)
	})

	t.Run("empty when default is invalid", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.json")
		require.NoError(t, os.WriteFile(path, []byte("nope"), 0o600))
		repo := newRepo(t, store.NewMemory(), FileDefault{Path: path})
		_, origin := repo.Load(ctx)
		assert.Equal(t, OriginEmpty, origin)
	})
}

func TestFileDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"hero":{"tagline":"Файл"}}`), 0o600))

	repo := newRepo(t, store.NewMemory(), NewDefaultSource(path))
	doc, origin := repo.Load(context.Background())
	assert.Equal(t, OriginDefault, origin)
	assert.Equal(t, "Файл", doc.Hero.Tagline)

	assert.IsType(t, EmbeddedDefault{}, NewDefaultSource(""))
}

func TestResetIgnoresStoredDocument(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	repo := newRepo(t, mem, EmbeddedDefault{})
	require.NoError(t, repo.Save(ctx, Document{Hero: Hero{Tagline: "custom"}}))

	doc, origin, err := repo.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, OriginDefault, origin)
	assert.NotEqual(t, "custom", doc.Hero.Tagline)

	_, err = mem.Get(ctx, store.ContentKey)
	assert.True(t, store.IsNotFound(err))
	assert.Equal(t, doc, repo.Current(ctx))
}

func TestSaveFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, failingStore{Store: store.NewMemory(), err: errors.New("down")}, NoDefault{})
	repo.Load(ctx)

	err := repo.Save(ctx, Document{Hero: Hero{Tagline: "new"}})
	require.Error(t, err)
	assert.Equal(t, "", repo.Current(ctx).Hero.Tagline)
}

func TestCurrentReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, store.NewMemory(), NoDefault{})
	require.NoError(t, repo.Save(ctx, sampleDocument()))

	doc := repo.Current(ctx)
	doc.Services[0].Title = "mutated"
	assert.Equal(t, "Лендинги", repo.Current(ctx).Services[0].Title)
}

func TestLookup(t *testing.T) {
	doc := sampleDocument()

	got, ok := Lookup(doc, "company.phone")
	assert.True(t, ok)
	assert.Equal(t, "+996 555", got)

	got, ok = Lookup(doc, "services.0.title")
	assert.True(t, ok)
	assert.Equal(t, "Лендинги", got)

	for _, path := range []string{"", "company.city", "company", "missing.path", "services.7.title", "hero.tagline.x"} {
		_, ok := Lookup(doc, path)
		assert.False(t, ok, path)
	}
}
