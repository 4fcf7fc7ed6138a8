package world

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"heist/server/internal/geom"
)

// ErrInvalidLayout is wrapped by every layout validation failure.
var ErrInvalidLayout = errors.New("invalid arena layout")

// Layout describes the fixed map of an arena: bounds, storages, jail, spawn
// points and static obstacles.
type Layout struct {
	Name        string         `yaml:"name"`
	Width       float64        `yaml:"width"`
	Height      float64        `yaml:"height"`
	Storages    []StorageSpec  `yaml:"storages"`
	Jail        JailSpec       `yaml:"jail"`
	CopSpawns   []geom.Vec2    `yaml:"copSpawns"`
	ThiefSpawns []geom.Vec2    `yaml:"thiefSpawns"`
	Obstacles   []ObstacleSpec `yaml:"obstacles"`
}

// StorageSpec places one coin storage.
type StorageSpec struct {
	ID       string    `yaml:"id"`
	Position geom.Vec2 `yaml:"position"`
	Radius   float64   `yaml:"radius"`
	Coins    float64   `yaml:"coins"`
}

// JailSpec places the jail.
type JailSpec struct {
	Position geom.Vec2 `yaml:"position"`
	Radius   float64   `yaml:"radius"`
}

// ObstacleSpec places one static wall.
type ObstacleSpec struct {
	ID   string    `yaml:"id"`
	Rect geom.Rect `yaml:",inline"`
}

// DefaultLayout returns the standard 1000x1000 arena: six 50-coin storages
// around a central jail.
func DefaultLayout() Layout {
	storagePositions := []geom.Vec2{
		{X: 200, Y: 150},
		{X: 800, Y: 150},
		{X: 900, Y: 500},
		{X: 800, Y: 850},
		{X: 200, Y: 850},
		{X: 100, Y: 500},
	}
	storages := make([]StorageSpec, 0, len(storagePositions))
	for i, pos := range storagePositions {
		storages = append(storages, StorageSpec{
			ID:       fmt.Sprintf("storage_%d", i),
			Position: pos,
			Radius:   40,
			Coins:    50,
		})
	}
	return Layout{
		Name:     "vault",
		Width:    1000,
		Height:   1000,
		Storages: storages,
		Jail:     JailSpec{Position: geom.Vec2{X: 500, Y: 500}, Radius: 60},
		CopSpawns: []geom.Vec2{
			{X: 500, Y: 400},
			{X: 460, Y: 430},
			{X: 540, Y: 430},
		},
		ThiefSpawns: []geom.Vec2{
			{X: 100, Y: 100},
			{X: 900, Y: 100},
			{X: 500, Y: 950},
		},
		Obstacles: []ObstacleSpec{
			{ID: "wall_nw", Rect: geom.Rect{X: 300, Y: 280, Width: 120, Height: 30}},
			{ID: "wall_ne", Rect: geom.Rect{X: 580, Y: 280, Width: 120, Height: 30}},
			{ID: "wall_sw", Rect: geom.Rect{X: 300, Y: 690, Width: 120, Height: 30}},
			{ID: "wall_se", Rect: geom.Rect{X: 580, Y: 690, Width: 120, Height: 30}},
			{ID: "pillar_w", Rect: geom.Rect{X: 250, Y: 430, Width: 30, Height: 140}},
			{ID: "pillar_e", Rect: geom.Rect{X: 720, Y: 430, Width: 30, Height: 140}},
		},
	}
}

// LoadLayout reads a YAML layout file and validates it.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout %s: %w", path, err)
	}
	return ParseLayout(data)
}

// ParseLayout decodes and validates a YAML layout document.
func ParseLayout(data []byte) (Layout, error) {
	var layout Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return Layout{}, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	if err := layout.Validate(); err != nil {
		return Layout{}, err
	}
	return layout, nil
}

// Validate checks that the layout can host a match.
func (l Layout) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("%w: non-positive bounds %gx%g", ErrInvalidLayout, l.Width, l.Height)
	}
	if len(l.Storages) == 0 {
		return fmt.Errorf("%w: no storages", ErrInvalidLayout)
	}
	if len(l.CopSpawns) == 0 || len(l.ThiefSpawns) == 0 {
		return fmt.Errorf("%w: both teams need at least one spawn", ErrInvalidLayout)
	}
	if l.Jail.Radius <= 0 {
		return fmt.Errorf("%w: jail radius must be positive", ErrInvalidLayout)
	}
	seen := make(map[string]struct{}, len(l.Storages))
	for _, s := range l.Storages {
		if s.ID == "" {
			return fmt.Errorf("%w: storage without id", ErrInvalidLayout)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate storage id %q", ErrInvalidLayout, s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.Coins <= 0 || s.Radius <= 0 {
			return fmt.Errorf("%w: storage %q needs positive coins and radius", ErrInvalidLayout, s.ID)
		}
	}
	for _, o := range l.Obstacles {
		if o.Rect.Width <= 0 || o.Rect.Height <= 0 {
			return fmt.Errorf("%w: obstacle %q has empty extent", ErrInvalidLayout, o.ID)
		}
	}
	return nil
}

// TotalCoins sums the capacity of every storage.
func (l Layout) TotalCoins() float64 {
	total := 0.0
	for _, s := range l.Storages {
		total += s.Coins
	}
	return total
}
