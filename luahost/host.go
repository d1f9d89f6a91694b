package luahost

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/Shopify/go-lua"
	"github.com/rs/zerolog"

	"github.com/signalgrid/signalgrid/core"
)

// Host loads and unloads Lua chips against a signal system. Chips are
// keyed by name; each gets its own Lua state with the signal API, the
// boundary types and any exposed actors installed before its script
// runs.
type Host struct {
	system *core.System
	logger zerolog.Logger

	mu      sync.RWMutex
	chips   map[string]*Chip
	exposed map[string]core.Actor
}

// NewHost creates a chip host bound to the given signal system.
func NewHost(system *core.System) *Host {
	return &Host{
		system:  system,
		logger:  zerolog.Nop(),
		chips:   make(map[string]*Chip),
		exposed: make(map[string]core.Actor),
	}
}

// SetLogger sets the logger used for chip lifecycle events.
func (h *Host) SetLogger(logger zerolog.Logger) *Host {
	h.logger = logger
	return h
}

// System returns the signal system chips are wired to.
func (h *Host) System() *core.System {
	return h.system
}

// LoadChip creates a chip and runs its script from a file.
func (h *Host) LoadChip(name, owner, scriptPath string) (*Chip, error) {
	return h.load(name, owner, scriptPath, func(l *lua.State) error {
		if err := lua.DoFile(l, scriptPath); err != nil {
			return fmt.Errorf("run chip script %s: %w", scriptPath, err)
		}
		return nil
	})
}

// LoadChipScript creates a chip and runs the given script source.
func (h *Host) LoadChipScript(name, owner, script string) (*Chip, error) {
	return h.load(name, owner, "", func(l *lua.State) error {
		if err := lua.DoString(l, script); err != nil {
			return fmt.Errorf("run chip script: %w", err)
		}
		return nil
	})
}

func (h *Host) load(name, owner, scriptPath string, run func(*lua.State) error) (*Chip, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidChipName)
	}

	chip := &Chip{name: name, owner: owner, host: h}
	chip.valid.Store(true)

	h.mu.Lock()
	if _, exists := h.chips[name]; exists {
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: '%s'", ErrChipExists, name)
	}
	h.initState(chip)
	h.chips[name] = chip
	h.mu.Unlock()

	// The script runs without the host lock held so it can load-time
	// send into the grid.
	if err := run(chip.state); err != nil {
		h.mu.Lock()
		delete(h.chips, name)
		h.mu.Unlock()
		chip.invalidate()
		return nil, err
	}

	h.logger.Info().Str("chip", name).Str("owner", owner).Str("script", scriptPath).Msg("chip loaded")
	return chip, nil
}

// initState builds the chip's Lua state. Caller holds the host lock.
func (h *Host) initState(chip *Chip) {
	l := lua.NewState()
	lua.OpenLibraries(l)
	registerBoundaryTypes(l)

	// Handler pin table
	l.NewTable()
	l.SetField(lua.RegistryIndex, handlerTableKey)

	chip.state = l
	chip.installSignalAPI()

	for name, actor := range h.exposed {
		pushActor(l, actor, core.KindActorRef)
		l.SetGlobal(name)
	}
}

// UnloadChip marks the chip invalid and forgets it. Listener and
// group entries referencing the chip persist until removed through
// leave or ignore; sends still reaching it keep delivering.
func (h *Host) UnloadChip(name string) error {
	h.mu.Lock()
	chip, exists := h.chips[name]
	if !exists {
		h.mu.Unlock()
		return fmt.Errorf("%w: '%s'", ErrChipNotFound, name)
	}
	delete(h.chips, name)
	h.mu.Unlock()

	chip.invalidate()
	h.logger.Info().Str("chip", name).Msg("chip unloaded")
	return nil
}

// UnloadAll invalidates and forgets every loaded chip.
func (h *Host) UnloadAll() {
	h.mu.Lock()
	chips := h.chips
	h.chips = make(map[string]*Chip)
	h.mu.Unlock()

	for name, chip := range chips {
		chip.invalidate()
		h.logger.Info().Str("chip", name).Msg("chip unloaded")
	}
}

// Chip returns the loaded chip with the given name.
func (h *Host) Chip(name string) (*Chip, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	chip, exists := h.chips[name]
	return chip, exists
}

// Chips returns a snapshot of the loaded chips.
func (h *Host) Chips() []*Chip {
	h.mu.RLock()
	defer h.mu.RUnlock()
	chips := make([]*Chip, 0, len(h.chips))
	for _, chip := range h.chips {
		chips = append(chips, chip)
	}
	return chips
}

// ChipCount returns the number of loaded chips.
func (h *Host) ChipCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.chips)
}

// ExposeActor publishes an actor reference as a global in every chip
// state, current and future, so scripts can address actors living
// outside the host.
func (h *Host) ExposeActor(name string, actor core.Actor) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidGlobalName)
	}
	if actor == nil {
		return fmt.Errorf("%w: expose '%s'", ErrNilActor, name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.exposed[name] = actor
	for _, chip := range h.chips {
		pushActor(chip.state, actor, core.KindActorRef)
		chip.state.SetGlobal(name)
	}
	return nil
}

// LoadManifest loads every chip a manifest declares. Script paths
// resolve against the manifest's directory; declared groups are
// joined after the chip script runs.
func (h *Host) LoadManifest(path string) error {
	manifest, err := LoadManifest(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	for _, entry := range manifest.Chips {
		script := entry.Script
		if !filepath.IsAbs(script) {
			script = filepath.Join(dir, script)
		}
		chip, err := h.LoadChip(entry.Name, entry.Owner, script)
		if err != nil {
			return fmt.Errorf("load chip '%s': %w", entry.Name, err)
		}
		for _, group := range entry.Groups {
			if err := h.system.Join(group, chip); err != nil {
				return fmt.Errorf("chip '%s' join '%s': %w", entry.Name, group, err)
			}
		}
	}
	return nil
}
