package cli

import (
	"errors"
	"io"

	"github.com/manifoldco/promptui"

	"github.com/uluk20-22520/uluk-site/internal/editor"
)

// terminal asks questions on the controlling terminal.
type terminal struct {
	in  io.ReadCloser
	out io.WriteCloser
}

// Prompt asks every field of form in order. Interrupting any question cancels
// the whole record.
func (t terminal) Prompt(form editor.Form) (editor.Record, bool) {
	rec := make(editor.Record, len(form.Fields))
	for _, f := range form.Fields {
		p := promptui.Prompt{
			Label:     f.Label,
			Default:   f.Default,
			AllowEdit: true,
			Stdin:     t.in,
			Stdout:    t.out,
		}
		value, err := p.Run()
		if err != nil {
			return nil, false
		}
		rec[f.Name] = value
	}
	return rec, true
}

// Confirm asks a yes/no question; anything but yes is a no.
func (t terminal) Confirm(message string) bool {
	p := promptui.Prompt{
		Label:     message,
		IsConfirm: true,
		Stdin:     t.in,
		Stdout:    t.out,
	}
	_, err := p.Run()
	return err == nil
}

// Secret reads a masked value.
func (t terminal) Secret(label string) (string, error) {
	p := promptui.Prompt{
		Label:  label,
		Mask:   '*',
		Stdin:  t.in,
		Stdout: t.out,
		Validate: func(s string) error {
			if s == "" {
				return errors.New("пароль не может быть пустым")
			}
			return nil
		},
	}
	return p.Run()
}

// confirmer returns a fixed yes when assumeYes is set.
func (t terminal) confirmer(assumeYes bool) editor.Confirmer {
	if assumeYes {
		return editor.Confirmed(true)
	}
	return t
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newTerminal(in io.Reader, out io.Writer) terminal {
	return terminal{in: io.NopCloser(in), out: nopWriteCloser{out}}
}
