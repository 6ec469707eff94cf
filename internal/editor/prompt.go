package editor

import "strings"

// Field is one prompt of a collection form.
type Field struct {
	Name      string
	Label     string
	Default   string
	Required  bool
	Multiline bool
}

// Form describes the prompts asked for one add or edit.
type Form struct {
	Kind   Kind
	Index  int // -1 when adding
	Fields []Field
}

// Record holds the answers to a Form keyed by Field.Name.
type Record map[string]string

func (r Record) get(name string) string {
	return strings.TrimSpace(r[name])
}

// Prompter asks for a whole record. ok is false when the user cancelled.
type Prompter interface {
	Prompt(form Form) (rec Record, ok bool)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(Form) (Record, bool)

// Prompt calls f.
func (f PrompterFunc) Prompt(form Form) (Record, bool) { return f(form) }

// Answered is a Prompter that returns a record already collected, such as a
// submitted HTML form.
type Answered Record

// Prompt implements Prompter.
func (a Answered) Prompt(Form) (Record, bool) { return Record(a), true }

// Cancelled is a Prompter that always cancels.
type Cancelled struct{}

// Prompt implements Prompter.
func (Cancelled) Prompt(Form) (Record, bool) { return nil, false }

// Confirmer asks a yes/no question.
type Confirmer interface {
	Confirm(message string) bool
}

// Confirmed is a Confirmer with a fixed answer.
type Confirmed bool

// Confirm implements Confirmer.
func (c Confirmed) Confirm(string) bool { return bool(c) }
