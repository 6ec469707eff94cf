package editor

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/uluk20-22520/uluk-site/internal/content"
	"github.com/uluk20-22520/uluk-site/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type staticDefault string

func (s staticDefault) Default(context.Context) ([]byte, error) { return []byte(s), nil }

const defaultDoc = `{"hero":{"tagline":"Default"},"services":[{"icon":"🛠","title":"S0","desc":"d0"}],"faq":[{"q":"q0","a":"a0"}]}`

func newRepo(t *testing.T, s store.Store) *content.Repository {
	t.Helper()
	repo, err := content.NewRepository(content.RepositoryDeps{Store: s, Defaults: staticDefault(defaultDoc)})
	require.NoError(t, err)
	return repo
}

func newEditor(t *testing.T) (*Editor, *content.Repository, store.Store) {
	t.Helper()
	s := store.NewMemory()
	repo := newRepo(t, s)
	return New(context.Background(), repo), repo, s
}

func storedDocument(t *testing.T, s store.Store) content.Document {
	t.Helper()
	raw, err := s.Get(context.Background(), store.ContentKey)
	require.NoError(t, err)
	doc, err := content.Decode(raw)
	require.NoError(t, err)
	return doc
}

func TestEditsStayInDraftUntilSave(t *testing.T) {
	ctx := context.Background()
	ed, repo, s := newEditor(t)

	ok, err := ed.Add(KindFAQ, Answered{"q": "Сроки?", "a": "Неделя"})
	require.NoError(t, err)
	require.True(t, ok)

	_, err = s.Get(ctx, store.ContentKey)
	assert.True(t, store.IsNotFound(err))
	assert.Len(t, repo.Current(ctx).FAQ, 1)
	assert.Len(t, ed.Draft().FAQ, 2)

	scalars := ScalarsFromForm(url.Values{
		"heroTagline":     {"New tagline"},
		"companyWhatsapp": {"+996700"},
	})
	require.NoError(t, ed.Save(ctx, scalars))

	saved := storedDocument(t, s)
	assert.Equal(t, "New tagline", saved.Hero.Tagline)
	assert.Equal(t, "+996700", saved.Company.WhatsApp)
	require.Len(t, saved.FAQ, 2)
	assert.Equal(t, content.FAQItem{Q: "Сроки?", A: "Неделя"}, saved.FAQ[1])
}

func TestDraftReturnsCopy(t *testing.T) {
	ed, _, _ := newEditor(t)
	d := ed.Draft()
	d.Services[0].Title = "mutated"
	assert.Equal(t, "S0", ed.Draft().Services[0].Title)
}

func TestAddCancelledOrIncomplete(t *testing.T) {
	ed, _, _ := newEditor(t)

	ok, err := ed.Add(KindFAQ, Cancelled{})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ed.Add(KindFAQ, Answered{"q": "Only question", "a": "   "})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ed.Add(KindCases, Answered{"title": "t", "task": "t", "solution": "s"})
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Len(t, ed.Draft().FAQ, 1)
	assert.Empty(t, ed.Draft().Cases)
}

func TestServiceIconDefaults(t *testing.T) {
	ed, _, _ := newEditor(t)

	form, err := ed.Form(KindServices, -1)
	require.NoError(t, err)
	assert.Equal(t, DefaultServiceIcon, form.Fields[0].Default)

	ok, err := ed.Add(KindServices, Answered{"title": "Новая", "desc": "d"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, DefaultServiceIcon, ed.Draft().Services[1].Icon)

	ok, err = ed.Edit(KindServices, 0, Answered{"icon": "", "title": "S0 edited", "desc": "d0"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, content.Service{Icon: "🛠", Title: "S0 edited", Desc: "d0"}, ed.Draft().Services[0])
}

func TestEditChangesOnlyTargetItem(t *testing.T) {
	cases := map[string]struct {
		answers Answered
		want    content.Service
	}{
		"all fields":     {Answered{"icon": "x", "title": "E", "desc": "D"}, content.Service{Icon: "x", Title: "E", Desc: "D"}},
		"icon kept":      {Answered{"icon": " ", "title": "E", "desc": "D"}, content.Service{Icon: "a", Title: "E", Desc: "D"}},
		"trimmed fields": {Answered{"icon": "x", "title": "  E ", "desc": "D\n"}, content.Service{Icon: "x", Title: "E", Desc: "D"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ed, _, _ := newEditor(t)
			_, err := ed.Delete(KindServices, 0, Confirmed(true))
			require.NoError(t, err)
			for i := range 5 {
				ok, err := ed.Add(KindServices, Answered{"icon": "a", "title": strconv.Itoa(i), "desc": "d"})
				require.NoError(t, err)
				require.True(t, ok)
			}
			before := ed.Draft().Services
			require.Len(t, before, 5)

			ok, err := ed.Edit(KindServices, 2, tc.answers)
			require.NoError(t, err)
			require.True(t, ok)

			after := ed.Draft().Services
			require.Len(t, after, 5)
			for i := range after {
				if i == 2 {
					assert.Equal(t, tc.want, after[i])
					continue
				}
				assert.Equal(t, before[i], after[i], "index %d", i)
			}
		})
	}
}

func TestEditPrefillsCurrentValues(t *testing.T) {
	ed, _, _ := newEditor(t)

	var seen Form
	ok, err := ed.Edit(KindFAQ, 0, PrompterFunc(func(f Form) (Record, bool) {
		seen = f
		return nil, false
	}))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, seen.Index)
	assert.Equal(t, "q0", seen.Fields[0].Default)
	assert.Equal(t, "a0", seen.Fields[1].Default)
	assert.Equal(t, "q0", ed.Draft().FAQ[0].Q)
}

func TestIndexOutOfRange(t *testing.T) {
	ed, _, _ := newEditor(t)

	_, err := ed.Edit(KindFAQ, 5, Cancelled{})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = ed.Delete(KindServices, -1, Confirmed(true))
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = ed.Form(KindTestimonials, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestUnknownKind(t *testing.T) {
	ed, _, _ := newEditor(t)
	_, err := ed.Items(Kind("pricing"))
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = ParseKind("pricing")
	assert.ErrorIs(t, err, ErrUnknownKind)

	k, err := ParseKind("faq")
	require.NoError(t, err)
	assert.Equal(t, KindFAQ, k)
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	ed, _, _ := newEditor(t)

	var asked string
	declined := confirmFunc(func(msg string) bool { asked = msg; return false })
	ok, err := ed.Delete(KindServices, 0, declined)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "Удалить эту услугу?", asked)
	assert.Len(t, ed.Draft().Services, 1)

	ok, err = ed.Delete(KindServices, 0, Confirmed(true))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, ed.Draft().Services)
	assert.Equal(t, "Удалить этот вопрос?", ConfirmMessage(KindFAQ))
}

func TestDeleteDoesNotAliasEarlierCopies(t *testing.T) {
	ed, _, _ := newEditor(t)
	for _, q := range []string{"q1", "q2"} {
		_, err := ed.Add(KindFAQ, Answered{"q": q, "a": "a"})
		require.NoError(t, err)
	}
	before := ed.Draft()

	_, err := ed.Delete(KindFAQ, 0, Confirmed(true))
	require.NoError(t, err)

	assert.Equal(t, []string{"q0", "q1", "q2"}, questions(before.FAQ))
	assert.Equal(t, []string{"q1", "q2"}, questions(ed.Draft().FAQ))
}

func TestItems(t *testing.T) {
	ed, _, _ := newEditor(t)
	items, err := ed.Items(KindServices)
	require.NoError(t, err)
	assert.Equal(t, []Item{{Index: 0, Title: "🛠 S0"}}, items)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	ed, repo, s := newEditor(t)
	require.NoError(t, ed.Save(ctx, Scalars{Hero: content.Hero{Tagline: "Saved"}}))

	ok, err := ed.Reset(ctx, Confirmed(false))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "Saved", ed.Draft().Hero.Tagline)

	ok, err = ed.Reset(ctx, Confirmed(true))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Default", ed.Draft().Hero.Tagline)
	assert.Equal(t, content.OriginDefault, repo.Origin())
	_, err = s.Get(ctx, store.ContentKey)
	assert.True(t, store.IsNotFound(err))
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	ed, _, s := newEditor(t)

	err := ed.Import(ctx, []byte(`{"hero": `))
	var importErr *content.ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, "Default", ed.Draft().Hero.Tagline)
	_, err = s.Get(ctx, store.ContentKey)
	assert.True(t, store.IsNotFound(err))

	require.NoError(t, ed.Import(ctx, []byte(`{"hero":{"tagline":"Imported"}}`)))
	assert.Equal(t, "Imported", ed.Draft().Hero.Tagline)
	assert.Equal(t, "Imported", storedDocument(t, s).Hero.Tagline)

	raw, err := ed.RawJSON()
	require.NoError(t, err)
	assert.Contains(t, raw, "\"tagline\": \"Imported\"")
}

func TestDrafts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	drafts := NewDrafts(newRepo(t, store.NewMemory()), time.Minute, func() time.Time { return now })

	a := drafts.Get(ctx, "a")
	assert.Same(t, a, drafts.Get(ctx, "a"))
	assert.NotSame(t, a, drafts.Get(ctx, "b"))
	assert.Equal(t, 2, drafts.Len())

	now = now.Add(30 * time.Second)
	drafts.Get(ctx, "a")
	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, drafts.Sweep())
	assert.Same(t, a, drafts.Get(ctx, "a"))

	now = now.Add(2 * time.Minute)
	assert.NotSame(t, a, drafts.Get(ctx, "a"))

	drafts.Drop("a")
	assert.Equal(t, 0, drafts.Len())
}

func TestDraftsRunStopsWithContext(t *testing.T) {
	drafts := NewDrafts(newRepo(t, store.NewMemory()), time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		drafts.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type confirmFunc func(string) bool

func (f confirmFunc) Confirm(msg string) bool { return f(msg) }

func questions(items []content.FAQItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Q
	}
	return out
}
