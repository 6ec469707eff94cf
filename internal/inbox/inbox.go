// Package inbox prepares captured leads for the admin panel.
package inbox

import (
	"slices"
	"time"

	"github.com/uluk20-22520/uluk-site/internal/leads"
)

// DateLayout is the display form of a lead's creation time.
const DateLayout = "02.01.2006, 15:04:05"

// EmptyText is shown when there are no leads.
const EmptyText = "Заявок пока нет"

// Confirmation prompts for destructive inbox actions.
const (
	ConfirmDelete = "Удалить эту заявку?"
	ConfirmClear  = "Удалить все заявки? Это действие нельзя отменить."
)

// Field labels of a card.
const (
	LabelPhone   = "Телефон"
	LabelService = "Услуга"
	LabelChannel = "Канал связи"
	LabelComment = "Комментарий:"
)

// Card is one lead as shown in the inbox.
type Card struct {
	ID      int64
	Name    string
	Phone   string
	Service string
	Channel string
	Comment string
	Date    string
}

// HasComment reports whether the comment block is shown.
func (c Card) HasComment() bool { return c.Comment != "" }

// View is the rendered state of the inbox tab.
type View struct {
	Count int
	Cards []Card
}

// Empty reports whether the empty state is shown.
func (v View) Empty() bool { return v.Count == 0 }

// Build orders list newest first and formats dates in loc. A nil loc means
// time.Local.
func Build(list []leads.Lead, loc *time.Location) View {
	if loc == nil {
		loc = time.Local
	}
	cards := make([]Card, 0, len(list))
	for _, l := range slices.Backward(list) {
		cards = append(cards, Card{
			ID:      l.ID,
			Name:    l.Name,
			Phone:   l.Phone,
			Service: l.Service,
			Channel: l.Channel,
			Comment: l.Comment,
			Date:    formatDate(l, loc),
		})
	}
	return View{Count: len(cards), Cards: cards}
}

// formatDate falls back to the id, which is the creation time in milliseconds,
// when the stored date does not parse.
func formatDate(l leads.Lead, loc *time.Location) string {
	t, err := time.Parse(time.RFC3339Nano, l.Date)
	if err != nil {
		if l.ID <= 0 {
			return l.Date
		}
		t = time.UnixMilli(l.ID)
	}
	return t.In(loc).Format(DateLayout)
}
