// Package editor holds the admin's working copy of the content document and
// the operations that change it.
package editor

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/uluk20-22520/uluk-site/internal/content"
)

// ResetMessage is asked before restoring the default document.
const ResetMessage = "Сбросить все данные к значениям по умолчанию? Это действие нельзя отменить."

// Scalars are the single-value sections edited by the main form.
type Scalars struct {
	Hero    content.Hero
	About   content.About
	Company content.Company
}

// ScalarsFromForm reads the content form fields.
func ScalarsFromForm(v url.Values) Scalars {
	return Scalars{
		Hero: content.Hero{
			Tagline:  v.Get("heroTagline"),
			Subtitle: v.Get("heroSubtitle"),
			CTA:      v.Get("heroCta"),
		},
		About: content.About{
			Headline: v.Get("aboutHeadline"),
			Text:     v.Get("aboutText"),
		},
		Company: content.Company{
			Name:     v.Get("companyName"),
			City:     v.Get("companyCity"),
			Address:  v.Get("companyAddress"),
			Phone:    v.Get("companyPhone"),
			WhatsApp: v.Get("companyWhatsapp"),
			Telegram: v.Get("companyTelegram"),
			Email:    v.Get("companyEmail"),
		},
	}
}

// ScalarsOf returns the single-value sections of doc.
func ScalarsOf(doc content.Document) Scalars {
	return Scalars{Hero: doc.Hero, About: doc.About, Company: doc.Company}
}

// Editor is one admin session's draft. Changes stay in the draft until Save.
type Editor struct {
	repo *content.Repository

	mu    sync.Mutex
	draft content.Document
}

// New loads the current document into a fresh draft.
func New(ctx context.Context, repo *content.Repository) *Editor {
	doc, _ := repo.Load(ctx)
	return &Editor{repo: repo, draft: doc}
}

// Draft returns a copy of the working document.
func (e *Editor) Draft() content.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Clone()
}

// Save overwrites hero, about and company from s and persists the whole draft.
func (e *Editor) Save(ctx context.Context, s Scalars) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.Hero = s.Hero
	e.draft.About = s.About
	e.draft.Company = s.Company
	return e.repo.Save(ctx, e.draft)
}

// Items lists the titles of a collection.
func (e *Editor) Items(kind Kind) ([]Item, error) {
	c, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return c.items(e.draft), nil
}

// Form returns the prompts for adding (index < 0) or editing an item.
func (e *Editor) Form(kind Kind, index int) (Form, error) {
	c, err := lookup(kind)
	if err != nil {
		return Form{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return c.form(&e.draft, index)
}

// Add prompts for a new item and appends it. It reports false when the prompt
// was cancelled or a required field was empty.
func (e *Editor) Add(kind Kind, p Prompter) (bool, error) {
	c, err := lookup(kind)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return c.add(&e.draft, p), nil
}

// Edit prompts with the current values of item index and replaces it in place.
func (e *Editor) Edit(kind Kind, index int, p Prompter) (bool, error) {
	c, err := lookup(kind)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return c.edit(&e.draft, index, p)
}

// Delete removes item index after confirmation.
func (e *Editor) Delete(kind Kind, index int, c Confirmer) (bool, error) {
	coll, err := lookup(kind)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return coll.remove(&e.draft, index, c)
}

// Reset clears the persisted document after confirmation and reloads the
// default into the draft.
func (e *Editor) Reset(ctx context.Context, c Confirmer) (bool, error) {
	if !c.Confirm(ResetMessage) {
		return false, nil
	}
	doc, _, err := e.repo.Reset(ctx)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	e.draft = doc
	e.mu.Unlock()
	return true, nil
}

// Export returns the draft as indented JSON.
func (e *Editor) Export() ([]byte, error) {
	return content.Export(e.Draft())
}

// RawJSON returns the draft as indented JSON text for read-only display.
func (e *Editor) RawJSON() (string, error) {
	raw, err := e.Export()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Import persists raw through the repository and then replaces the draft.
// Invalid JSON leaves both untouched and returns *content.ImportError.
func (e *Editor) Import(ctx context.Context, raw []byte) error {
	doc, err := e.repo.Import(ctx, raw)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.draft = doc
	e.mu.Unlock()
	return nil
}

func lookup(kind Kind) (collection, error) {
	c, ok := collections[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return c, nil
}
