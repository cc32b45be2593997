package service

import (
	"fmt"

	"usbmap/internal/domain"
)

// MaxPortsPerController is the number of ports the platform will map on one
// controller. Selecting more is allowed but flagged.
const MaxPortsPerController = 15

// PortView is one row of the selection listing
type PortView struct {
	SelectionIndex int
	Controller     string
	Port           domain.Port
	Label          string
	// Companion is the companion's selection index, or 0 if it has none.
	Companion int
}

// ControllerView groups a controller's rows
type ControllerView struct {
	Name     string
	Class    domain.ControllerClass
	Selected int
	Ports    []PortView
}

// OverLimit reports whether more ports are selected than can be mapped.
func (c ControllerView) OverLimit() bool {
	return c.Selected > MaxPortsPerController
}

// Listing returns every controller with its numbered ports.
func (s *Session) Listing() []ControllerView {
	s.applyDefaultSelection()

	refs := s.topo.Ports()
	indexOf := make(map[*domain.Port]int, len(refs))
	for _, r := range refs {
		indexOf[r.Port] = r.SelectionIndex
	}

	views := make([]ControllerView, 0, len(s.topo.Controllers))
	byController := make(map[*domain.Controller]int, len(s.topo.Controllers))
	for i := range s.topo.Controllers {
		c := &s.topo.Controllers[i]
		byController[c] = len(views)
		views = append(views, ControllerView{Name: c.Name, Class: c.Class})
	}

	for _, r := range refs {
		v := &views[byController[r.Controller]]
		if r.Port.IsSelected() {
			v.Selected++
		}
		v.Ports = append(v.Ports, PortView{
			SelectionIndex: r.SelectionIndex,
			Controller:     r.Controller.Name,
			Port:           r.Port.Clone(),
			Label:          r.Port.Label(s.settings.ShowFriendlyTypes),
			Companion:      indexOf[s.topo.Companion(r.Port)],
		})
	}
	return views
}

// applyDefaultSelection selects unset ports that have something attached,
// directly or through their companion. It only runs once per topology.
func (s *Session) applyDefaultSelection() {
	if s.defaulted {
		return
	}
	for _, r := range s.topo.Ports() {
		if r.Port.Selected == nil {
			r.Port.SetSelected(s.populated(r.Port))
		}
	}
	s.defaulted = true
}

func (s *Session) populated(p *domain.Port) bool {
	if p.HasDevices() {
		return true
	}
	companion := s.topo.Companion(p)
	return companion != nil && companion.HasDevices()
}

// resolve maps selection indices to ports, failing on the first unknown one.
func (s *Session) resolve(indices []int) ([]domain.PortRef, error) {
	refs := s.topo.Ports()
	out := make([]domain.PortRef, 0, len(indices))
	for _, idx := range indices {
		if idx < 1 || idx > len(refs) {
			return nil, fmt.Errorf("port %d does not exist; valid ports are 1 to %d", idx, len(refs))
		}
		out = append(out, refs[idx-1])
	}
	return out, nil
}

// bound applies fn to each port and, with companion binding on, to its
// companion. A companion already handled this call is not touched again.
func (s *Session) bound(refs []domain.PortRef, fn func(target, source *domain.Port)) {
	done := make(map[*domain.Port]bool, len(refs))
	for _, r := range refs {
		if done[r.Port] {
			continue
		}
		if s.settings.AutoBindCompanions {
			if companion := s.topo.Companion(r.Port); companion != nil && !done[companion] {
				fn(companion, r.Port)
				done[companion] = true
			}
		}
		fn(r.Port, r.Port)
		done[r.Port] = true
	}
}

// TogglePorts flips the selection of each listed port.
func (s *Session) TogglePorts(indices ...int) error {
	s.applyDefaultSelection()
	refs, err := s.resolve(indices)
	if err != nil {
		return err
	}
	// The companion follows the port's new state, computed before the port flips.
	s.bound(refs, func(target, source *domain.Port) {
		target.SetSelected(!source.IsSelected())
	})
	s.selectionChanged("toggle", len(refs))
	return nil
}

// SelectAll selects every port
func (s *Session) SelectAll() {
	s.setAll(func(*domain.Port) (bool, bool) { return true, true })
	s.selectionChanged("select_all", 0)
}

// SelectNone clears every selection
func (s *Session) SelectNone() {
	s.setAll(func(*domain.Port) (bool, bool) { return false, true })
	s.selectionChanged("select_none", 0)
}

// SelectPopulated selects every port with something attached, directly or
// through its companion. Other ports are left alone.
func (s *Session) SelectPopulated() {
	s.setAll(func(p *domain.Port) (bool, bool) { return true, s.populated(p) })
	s.selectionChanged("select_populated", 0)
}

// DeselectEmpty deselects every port with nothing attached, directly or
// through its companion. Other ports are left alone.
func (s *Session) DeselectEmpty() {
	s.setAll(func(p *domain.Port) (bool, bool) { return false, !s.populated(p) })
	s.selectionChanged("deselect_empty", 0)
}

func (s *Session) setAll(decide func(*domain.Port) (selected, apply bool)) {
	s.applyDefaultSelection()
	refs := s.topo.Ports()
	decisions := make([]bool, len(refs))
	applies := make([]bool, len(refs))
	// Decide for every port before changing any, so companions see the old state.
	for i, r := range refs {
		decisions[i], applies[i] = decide(r.Port)
	}
	for i, r := range refs {
		if applies[i] {
			r.Port.SetSelected(decisions[i])
		}
	}
}

// SetPortType sets the connector type of each listed port.
func (s *Session) SetPortType(ct domain.ConnectorType, indices ...int) error {
	if !ct.Valid() {
		return fmt.Errorf("%d is not a known connector type", int(ct))
	}
	refs, err := s.resolve(indices)
	if err != nil {
		return err
	}
	s.bound(refs, func(target, _ *domain.Port) {
		v := ct
		target.Type = &v
	})
	s.selectionChanged("set_type", len(refs))
	return nil
}

// SetComment sets the comment on each listed port. An empty comment clears it.
func (s *Session) SetComment(comment string, indices ...int) error {
	refs, err := s.resolve(indices)
	if err != nil {
		return err
	}
	for _, r := range refs {
		if comment == "" {
			r.Port.Comment = nil
			continue
		}
		v := comment
		r.Port.Comment = &v
	}
	s.selectionChanged("set_comment", len(refs))
	return nil
}

// Validate checks the selection can be emitted. It returns
// domain.ValidationErrors listing every problem, or nil.
func (s *Session) Validate() error {
	s.applyDefaultSelection()

	var errs domain.ValidationErrors
	selected := false
	for _, r := range s.topo.Ports() {
		if !r.Port.IsSelected() {
			continue
		}
		selected = true
		if _, ok := r.Port.Connector(); !ok {
			errs = append(errs, domain.CurationError{
				SelectionIndex: r.SelectionIndex,
				Message:        fmt.Sprintf("port %d (%s on %s) is selected but has no connector type", r.SelectionIndex, r.Port.Name, r.Controller.Name),
			})
		}
	}
	if !selected {
		return domain.ValidationErrors{{Message: domain.ErrNoSelection.Error() + "; select some ports first"}}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (s *Session) selectionChanged(op string, ports int) {
	s.log.Debug().Str("op", op).Int("ports", ports).Msg("selection changed")
	s.events.Publish(Event{
		Type:    EventSelectionChanged,
		Payload: map[string]any{"op": op, "ports": ports},
	})
}
