package editor

import (
	"errors"
	"fmt"

	"github.com/uluk20-22520/uluk-site/internal/content"
)

// Kind names an editable collection.
type Kind string

const (
	KindServices     Kind = "services"
	KindCases        Kind = "cases"
	KindTestimonials Kind = "testimonials"
	KindFAQ          Kind = "faq"
)

// Kinds lists the collections in panel order.
var Kinds = []Kind{KindServices, KindCases, KindTestimonials, KindFAQ}

// DefaultServiceIcon is used when a new service is saved without an icon.
const DefaultServiceIcon = "🚀"

var (
	ErrIndexOutOfRange = errors.New("editor: index out of range")
	ErrUnknownKind     = errors.New("editor: unknown collection")
)

// ParseKind validates s as a collection name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := collections[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Item is one row of an admin collection list.
type Item struct {
	Index int
	Title string
}

type collection interface {
	form(doc *content.Document, index int) (Form, error)
	add(doc *content.Document, p Prompter) bool
	edit(doc *content.Document, index int, p Prompter) (bool, error)
	remove(doc *content.Document, index int, c Confirmer) (bool, error)
	items(doc content.Document) []Item
	confirmMessage() string
}

// def describes one collection over element type T.
type def[T any] struct {
	kind    Kind
	fields  []Field
	confirm string
	slice   func(doc *content.Document) *[]T
	record  func(T) Record
	// build returns the element for rec, or false when a required field is empty.
	build func(rec Record, prev *T) (T, bool)
	title func(T) string
}

func (s def[T]) form(doc *content.Document, index int) (Form, error) {
	f := Form{Kind: s.kind, Index: index, Fields: make([]Field, len(s.fields))}
	copy(f.Fields, s.fields)
	if index < 0 {
		return f, nil
	}
	list := *s.slice(doc)
	if index >= len(list) {
		return Form{}, ErrIndexOutOfRange
	}
	current := s.record(list[index])
	for i := range f.Fields {
		f.Fields[i].Default = current[f.Fields[i].Name]
	}
	return f, nil
}

func (s def[T]) add(doc *content.Document, p Prompter) bool {
	f, _ := s.form(doc, -1)
	rec, ok := p.Prompt(f)
	if !ok {
		return false
	}
	item, ok := s.build(rec, nil)
	if !ok {
		return false
	}
	list := s.slice(doc)
	*list = append(*list, item)
	return true
}

func (s def[T]) edit(doc *content.Document, index int, p Prompter) (bool, error) {
	f, err := s.form(doc, index)
	if err != nil {
		return false, err
	}
	rec, ok := p.Prompt(f)
	if !ok {
		return false, nil
	}
	list := *s.slice(doc)
	prev := list[index]
	item, ok := s.build(rec, &prev)
	if !ok {
		return false, nil
	}
	list[index] = item
	return true, nil
}

func (s def[T]) remove(doc *content.Document, index int, c Confirmer) (bool, error) {
	list := s.slice(doc)
	if index < 0 || index >= len(*list) {
		return false, ErrIndexOutOfRange
	}
	if !c.Confirm(s.confirm) {
		return false, nil
	}
	*list = append((*list)[:index:index], (*list)[index+1:]...)
	return true, nil
}

func (s def[T]) items(doc content.Document) []Item {
	list := *s.slice(&doc)
	out := make([]Item, len(list))
	for i, v := range list {
		out[i] = Item{Index: i, Title: s.title(v)}
	}
	return out
}

func required(values ...string) bool {
	for _, v := range values {
		if v == "" {
			return false
		}
	}
	return true
}

func (s def[T]) confirmMessage() string { return s.confirm }

// ConfirmMessage returns the question asked before deleting from kind.
func ConfirmMessage(kind Kind) string {
	if c, ok := collections[kind]; ok {
		return c.confirmMessage()
	}
	return ""
}

var servicesDef = def[content.Service]{
	kind: KindServices,
	fields: []Field{
		{Name: "icon", Label: "Emoji-иконка:", Default: DefaultServiceIcon},
		{Name: "title", Label: "Название услуги:", Required: true},
		{Name: "desc", Label: "Описание:", Required: true, Multiline: true},
	},
	confirm: "Удалить эту услугу?",
	slice:   func(d *content.Document) *[]content.Service { return &d.Services },
	record: func(v content.Service) Record {
		return Record{"icon": v.Icon, "title": v.Title, "desc": v.Desc}
	},
	build: func(rec Record, prev *content.Service) (content.Service, bool) {
		v := content.Service{Icon: rec.get("icon"), Title: rec.get("title"), Desc: rec.get("desc")}
		if v.Icon == "" {
			v.Icon = DefaultServiceIcon
			if prev != nil {
				v.Icon = prev.Icon
			}
		}
		return v, required(v.Title, v.Desc)
	},
	title: func(v content.Service) string { return v.Icon + " " + v.Title },
}

var casesDef = def[content.Case]{
	kind: KindCases,
	fields: []Field{
		{Name: "title", Label: "Название кейса:", Required: true},
		{Name: "task", Label: "Задача:", Required: true, Multiline: true},
		{Name: "solution", Label: "Решение:", Required: true, Multiline: true},
		{Name: "result", Label: "Результат:", Required: true, Multiline: true},
	},
	confirm: "Удалить этот кейс?",
	slice:   func(d *content.Document) *[]content.Case { return &d.Cases },
	record: func(v content.Case) Record {
		return Record{"title": v.Title, "task": v.Task, "solution": v.Solution, "result": v.Result}
	},
	build: func(rec Record, _ *content.Case) (content.Case, bool) {
		v := content.Case{Title: rec.get("title"), Task: rec.get("task"), Solution: rec.get("solution"), Result: rec.get("result")}
		return v, required(v.Title, v.Task, v.Solution, v.Result)
	},
	title: func(v content.Case) string { return v.Title },
}

var testimonialsDef = def[content.Testimonial]{
	kind: KindTestimonials,
	fields: []Field{
		{Name: "name", Label: "Имя клиента:", Required: true},
		{Name: "text", Label: "Текст отзыва:", Required: true, Multiline: true},
	},
	confirm: "Удалить этот отзыв?",
	slice:   func(d *content.Document) *[]content.Testimonial { return &d.Testimonials },
	record: func(v content.Testimonial) Record {
		return Record{"name": v.Name, "text": v.Text}
	},
	build: func(rec Record, _ *content.Testimonial) (content.Testimonial, bool) {
		v := content.Testimonial{Name: rec.get("name"), Text: rec.get("text")}
		return v, required(v.Name, v.Text)
	},
	title: func(v content.Testimonial) string { return v.Name },
}

var faqDef = def[content.FAQItem]{
	kind: KindFAQ,
	fields: []Field{
		{Name: "q", Label: "Вопрос:", Required: true},
		{Name: "a", Label: "Ответ:", Required: true, Multiline: true},
	},
	confirm: "Удалить этот вопрос?",
	slice:   func(d *content.Document) *[]content.FAQItem { return &d.FAQ },
	record: func(v content.FAQItem) Record {
		return Record{"q": v.Q, "a": v.A}
	},
	build: func(rec Record, _ *content.FAQItem) (content.FAQItem, bool) {
		v := content.FAQItem{Q: rec.get("q"), A: rec.get("a")}
		return v, required(v.Q, v.A)
	},
	title: func(v content.FAQItem) string { return v.Q },
}

var collections = map[Kind]collection{
	KindServices:     servicesDef,
	KindCases:        casesDef,
	KindTestimonials: testimonialsDef,
	KindFAQ:          faqDef,
}
