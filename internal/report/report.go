// Package report models a document as a tree of sections and elements that
// renders to an HTML fragment.
//
// A Report owns exactly one root Section; each Section owns its contents.
// Parent and report pointers on a Section are back-references maintained by
// the tree operations. A tree is not safe for concurrent mutation: a single
// caller owns and mutates it, and Generate only reads it.
package report

import (
	"context"
	"fmt"
)

// Report is the top-level document.
type Report struct {
	title    string
	style    string
	root     *Section
	renderer ElementRenderer
	obs      Observer
}

// Option configures a Report.
type Option func(*Report)

// WithObserver sets the observer that receives structural change events.
func WithObserver(o Observer) Option {
	return func(r *Report) { r.obs = o }
}

// WithRenderer sets the element renderer used by Generate.
func WithRenderer(er ElementRenderer) Option {
	return func(r *Report) { r.renderer = er }
}

// New creates a report. The given root is used when non-nil; otherwise an
// empty section becomes the root.
func New(title string, root *Section, opts ...Option) (*Report, error) {
	r := &Report{title: title}
	for _, opt := range opts {
		opt(r)
	}
	if root == nil {
		root = NewSection()
	}
	if err := r.SetRoot(root); err != nil {
		return nil, err
	}
	return r, nil
}

// Title returns the report title.
func (r *Report) Title() string { return r.title }

// Style returns the style hint applied to the title.
func (r *Report) Style() string { return r.style }

// SetTitle sets the report title and an optional style hint.
func (r *Report) SetTitle(title, style string) {
	r.title = title
	r.style = style
}

// Root returns the root section.
func (r *Report) Root() *Section { return r.root }

func (r *Report) String() string {
	if r == nil {
		return "Report(nil)"
	}
	if r.title == "" {
		return fmt.Sprintf("Report(%p)", r)
	}
	return fmt.Sprintf("Report(%q)", r.title)
}

func (r *Report) observer() Observer {
	if r == nil || r.obs == nil {
		return nopObserver{}
	}
	return r.obs
}

// SetRoot installs s as the root section. s is detached from any other
// report or parent section first, and the previous root is released.
func (r *Report) SetRoot(s *Section) error {
	if s == nil {
		s = NewSection()
	}
	if s == r.root {
		return nil
	}

	if s.report != nil && s.report != r {
		if err := s.SetReport(r); err != nil {
			return err
		}
	}
	if s.parent != nil {
		s.parent.Remove(s)
	}

	if old := r.root; old != nil {
		r.observer().Record(Event{Kind: EventRemoved, Section: old, Report: r})
		old.setReport(nil)
	}

	r.root = s
	s.parent = nil
	s.setReport(r)
	r.observer().Record(Event{Kind: EventAttached, Section: s, Report: r})
	return nil
}

// AddSection adds a new section to the root section.
func (r *Report) AddSection(name string) (*Section, error) {
	return r.root.AddSection(name)
}

// RemoveSection removes s from wherever it sits in this report. Sections not
// attached to r are ignored. Removing the root replaces it with an empty
// section.
func (r *Report) RemoveSection(s *Section) {
	if s == nil || s.report != r {
		return
	}
	switch {
	case s == r.root:
		r.observer().Record(Event{Kind: EventRemoved, Section: s, Report: r})
		s.setReport(nil)
		r.root = NewSection()
		r.root.report = r
	case s.parent != nil:
		s.parent.Remove(s)
	default:
		// Back-reference set without a place in the tree.
		r.observer().Record(Event{Kind: EventRemoved, Section: s, Report: r})
		s.setReport(nil)
	}
}

// GetSection finds a section by reference name anywhere in the report.
func (r *Report) GetSection(name string) (*Section, error) {
	return r.root.GetSection(name)
}

// Contains reports whether s is part of this report's tree.
func (r *Report) Contains(s *Section) bool {
	return s != nil && r.root.contains(s)
}

// Walk visits every item under the root; see Section.Walk.
func (r *Report) Walk(fn func(it Item, depth int) error) error {
	return r.root.Walk(fn)
}

// Mailer hands a rendered report to a delivery mechanism.
type Mailer interface {
	Mail(ctx context.Context, subject string, recipients, senders []string, body string) error
}

// MailTo renders the report and passes it, with the subject, recipients and
// senders unchanged, to m.
func (r *Report) MailTo(ctx context.Context, m Mailer, subject string, recipients, senders []string) error {
	body, err := r.Generate()
	if err != nil {
		return fmt.Errorf("generating report: %w", err)
	}
	return m.Mail(ctx, subject, recipients, senders, body)
}
