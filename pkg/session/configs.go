package session

import (
	"context"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/interaction"
)

func (s *Session) repository() error {
	if s.repo == nil {
		return errors.New(errors.ErrCodeUnsupported, "session has no storage configured")
	}
	return nil
}

// Snapshot captures the current diagram as a config without saving it.
// When a config was saved or applied earlier and name is empty or equal to
// its name, the snapshot keeps that config's id so saving updates it.
func (s *Session) Snapshot(name string) diagram.Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.ctrl.Data()
	cfg := diagram.Config{
		ConnectionID: s.request.ConnectionID,
		Name:         name,
		Schemas:      append([]string(nil), s.request.Schemas...),
		Include:      append([]string(nil), s.request.Include...),
		Exclude:      append([]string(nil), s.request.Exclude...),
		Options:      d.Options,
		Layout: diagram.LayoutState{
			Algorithm:     string(s.algorithm),
			NodePositions: d.Positions(),
			Viewport:      s.view,
		},
	}
	if s.current != nil && (name == "" || name == s.current.Name) {
		cfg.ID = s.current.ID
		cfg.Name = s.current.Name
		cfg.CreatedAt = s.current.CreatedAt
	}
	return cfg
}

// SaveConfig persists the current positions, viewport and options under
// name and returns the stored config.
func (s *Session) SaveConfig(ctx context.Context, name string) (diagram.Config, error) {
	if err := s.repository(); err != nil {
		return diagram.Config{}, err
	}
	cfg := s.Snapshot(name)
	if cfg.Name == "" {
		return cfg, errors.New(errors.ErrCodeInvalidInput, "diagram name cannot be empty")
	}

	saved, err := s.repo.Save(ctx, cfg)
	if err != nil {
		return saved, err
	}

	s.mu.Lock()
	s.current = &saved
	s.mu.Unlock()
	return saved, nil
}

// LoadConfig reads a saved config without applying it. found is false when
// no config has that id.
func (s *Session) LoadConfig(ctx context.Context, id string) (cfg diagram.Config, found bool, err error) {
	if err := s.repository(); err != nil {
		return cfg, false, err
	}
	return s.repo.Load(ctx, id)
}

// ListConfigs lists saved configs, newest first, optionally restricted to
// one connection.
func (s *Session) ListConfigs(ctx context.Context, connID string) ([]diagram.Config, error) {
	if err := s.repository(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, connID)
}

// DeleteConfig removes a saved config.
func (s *Session) DeleteConfig(ctx context.Context, id string) error {
	if err := s.repository(); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.mu.Unlock()
	return nil
}

// ApplyConfig regenerates the diagram described by cfg and restores its
// saved positions and viewport. Tables that no longer exist are skipped and
// new tables keep their computed positions.
func (s *Session) ApplyConfig(ctx context.Context, cfg diagram.Config) (*diagram.Data, error) {
	opts := cfg.Options
	req := Request{
		ConnectionID: cfg.ConnectionID,
		Schemas:      cfg.Schemas,
		Include:      cfg.Include,
		Exclude:      cfg.Exclude,
		Options:      &opts,
		Algorithm:    cfg.Layout.Algorithm,
	}
	d, err := s.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	s.update(func() interaction.Change {
		if s.ctrl.Data() != d {
			return interaction.ChangeNone
		}
		d.ApplyPositions(cfg.Layout.NodePositions)
		if cfg.Layout.Viewport.Zoom > 0 {
			s.view = cfg.Layout.Viewport
			s.view.Normalize()
		}
		c := cfg
		s.current = &c
		return interaction.ChangePositions | interaction.ChangeViewport
	})
	return d, nil
}

// OpenConfig loads and applies a saved config. found is false when no
// config has that id; the current diagram is then left untouched.
func (s *Session) OpenConfig(ctx context.Context, id string) (d *diagram.Data, found bool, err error) {
	cfg, found, err := s.LoadConfig(ctx, id)
	if err != nil || !found {
		return nil, found, err
	}
	d, err = s.ApplyConfig(ctx, cfg)
	return d, true, err
}

// Current returns the config last saved or applied, if any.
func (s *Session) Current() (diagram.Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return diagram.Config{}, false
	}
	return *s.current, true
}
