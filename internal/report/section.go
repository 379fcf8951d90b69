package report

import (
	"errors"
	"fmt"
	"slices"
)

// ErrCycle is returned when a section would be placed inside itself.
var ErrCycle = errors.New("section cannot contain itself")

// Section is a container node in the report tree. It owns its contents; its
// parent and report fields are non-owning back-references.
type Section struct {
	name  string
	title string
	style string
	flow  Flow

	contents   []Item
	references map[string]Item

	parent *Section
	report *Report
}

// NewSection returns an empty section with vertical flow.
func NewSection() *Section {
	return &Section{
		flow:       FlowVertical,
		references: make(map[string]Item),
	}
}

// Name returns the reference name the section was registered under, if any.
func (s *Section) Name() string { return s.name }

// Title returns the section heading.
func (s *Section) Title() string { return s.title }

// Style returns the style hint applied to the section heading.
func (s *Section) Style() string { return s.style }

// SetTitle sets the section heading and an optional style hint.
func (s *Section) SetTitle(title, style string) {
	s.title = title
	s.style = style
}

// Flow returns the layout direction, defaulting to vertical.
func (s *Section) Flow() Flow {
	if s.flow == "" {
		return FlowVertical
	}
	return s.flow
}

// SetFlow sets the layout direction.
func (s *Section) SetFlow(f Flow) { s.flow = f }

// Parent returns the enclosing section, or nil for a root or detached section.
func (s *Section) Parent() *Section { return s.parent }

// Report returns the report this section belongs to, or nil.
func (s *Section) Report() *Report { return s.report }

// Contents returns a copy of the section's ordered contents.
func (s *Section) Contents() []Item {
	return slices.Clone(s.contents)
}

// Len returns the number of direct items in the section.
func (s *Section) Len() int { return len(s.contents) }

// Reference looks up a direct item by name.
func (s *Section) Reference(name string) (Item, bool) {
	it, ok := s.references[name]
	return it, ok
}

func (s *Section) String() string {
	switch {
	case s == nil:
		return "Section(nil)"
	case s.name != "":
		return fmt.Sprintf("Section(%s)", s.name)
	case s.title != "":
		return fmt.Sprintf("Section(%q)", s.title)
	default:
		return fmt.Sprintf("Section(%p)", s)
	}
}

// SetReport points the section at r. If the section currently belongs to a
// different report it is first removed from that report, and the detachment
// is recorded on the old report's observer. Assigning the report the section
// already has does nothing.
//
// SetReport only maintains the back-reference; use Report.SetRoot or
// Section.Add to place a section inside a report's structure. After a bare
// SetReport, s.Report() is r but r.Contains(s) is false until s is added
// somewhere in r's tree.
func (s *Section) SetReport(r *Report) error {
	if s.report == r {
		return nil
	}
	if old := s.report; old != nil {
		old.observer().Record(Event{Kind: EventDetached, Section: s, Report: old, Target: r})
		old.RemoveSection(s)
		if s.report == old {
			return fmt.Errorf("%w: %s still belongs to %s", ErrAlreadyAttached, s, old)
		}
	}
	s.setReport(r)
	return nil
}

// setReport updates the report back-reference of s and all of its descendants
// without any detachment.
func (s *Section) setReport(r *Report) {
	s.report = r
	for _, it := range s.contents {
		if child, ok := it.(*Section); ok {
			child.setReport(r)
		}
	}
}

// AddSection creates a new section, appends it to s and registers it under
// name when name is non-empty.
func (s *Section) AddSection(name string) (*Section, error) {
	child := NewSection()
	if err := s.Add(child, name); err != nil {
		return nil, err
	}
	return child, nil
}

// Add appends an element or section to s. A section is first pulled out of
// wherever it currently lives, including another report. An element belongs
// to at most one section and must have a known type. When name is non-empty
// the item is registered in the section's references.
func (s *Section) Add(it Item, name string) error {
	if name != "" {
		if _, ok := s.references[name]; ok {
			return fmt.Errorf("%w: %q in %s", ErrDuplicateName, name, s)
		}
	}

	switch v := it.(type) {
	case *Element:
		if v == nil {
			return errors.New("cannot add nil element")
		}
		if !v.Type.Valid() {
			return fmt.Errorf("%w: %q", ErrUnsupportedElementType, v.Type)
		}
		if v.owner != nil {
			return fmt.Errorf("%w: %s element in %s", ErrElementInUse, v.Type, v.owner)
		}
		v.owner = s
	case *Section:
		if v == nil {
			return errors.New("cannot add nil section")
		}
		for anc := s; anc != nil; anc = anc.parent {
			if anc == v {
				return fmt.Errorf("%w: %s", ErrCycle, v)
			}
		}
		if v.report != nil && v.report != s.report {
			if err := v.SetReport(s.report); err != nil {
				return err
			}
		}
		if v.parent != nil {
			v.parent.Remove(v)
		} else if r := v.report; r != nil && r.root == v {
			r.RemoveSection(v)
		}
		v.parent = s
		v.name = name
		v.setReport(s.report)
	default:
		return fmt.Errorf("unknown item type %T", it)
	}

	s.contents = append(s.contents, it)
	if name != "" {
		if s.references == nil {
			s.references = make(map[string]Item)
		}
		s.references[name] = it
	}

	if s.report != nil {
		if child, ok := it.(*Section); ok {
			s.report.observer().Record(Event{Kind: EventAdded, Section: child, Report: s.report, Name: name})
		}
	}
	return nil
}

// AddElement appends an element, registering it under name when non-empty.
func (s *Section) AddElement(el *Element, name string) error {
	return s.Add(el, name)
}

// Remove takes it out of s's contents and references. Removed sections lose
// their parent and report back-references. It reports whether it was found.
func (s *Section) Remove(it Item) bool {
	idx := slices.IndexFunc(s.contents, func(c Item) bool { return c == it })
	if idx < 0 {
		return false
	}
	s.contents = slices.Delete(s.contents, idx, idx+1)
	for name, ref := range s.references {
		if ref == it {
			delete(s.references, name)
		}
	}

	if el, ok := it.(*Element); ok {
		el.owner = nil
	}
	if child, ok := it.(*Section); ok {
		if r := child.report; r != nil {
			r.observer().Record(Event{Kind: EventRemoved, Section: child, Report: r, Name: child.name})
		}
		child.parent = nil
		child.name = ""
		child.setReport(nil)
	}
	return true
}

// RemoveSection removes child if it is a direct child of s. Removing a
// section that is not a child of s is a no-op.
func (s *Section) RemoveSection(child *Section) {
	if child == nil || child.parent != s {
		return
	}
	s.Remove(child)
}

// GetSection looks up a section by reference name, first among the direct
// references of s and then depth-first through nested sections.
func (s *Section) GetSection(name string) (*Section, error) {
	if found := s.findSection(name); found != nil {
		return found, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

func (s *Section) findSection(name string) *Section {
	if it, ok := s.references[name]; ok {
		if sec, ok := it.(*Section); ok {
			return sec
		}
	}
	for _, it := range s.contents {
		if child, ok := it.(*Section); ok {
			if found := child.findSection(name); found != nil {
				return found
			}
		}
	}
	return nil
}

// Walk calls fn for every item below s in depth-first, pre-order sequence.
// depth is 1 for direct children. Walking stops at the first error.
func (s *Section) Walk(fn func(it Item, depth int) error) error {
	return s.walk(fn, 1)
}

func (s *Section) walk(fn func(Item, int) error, depth int) error {
	for _, it := range s.contents {
		if err := fn(it, depth); err != nil {
			return err
		}
		if child, ok := it.(*Section); ok {
			if err := child.walk(fn, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// contains reports whether target is s or lies anywhere below it.
func (s *Section) contains(target *Section) bool {
	if s == target {
		return true
	}
	for _, it := range s.contents {
		if child, ok := it.(*Section); ok && child.contains(target) {
			return true
		}
	}
	return false
}
