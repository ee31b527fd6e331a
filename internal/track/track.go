// Package track models the static description of a race track: its
// bounds, wrap behavior, and the typed elements (road, wall,
// checkpoint, finish, spawn, boost, oil, ramp, ...) laid out on it.
//
// A Track is immutable once loaded; rooms never mutate it during a
// race. The on-disk JSON format mirrors the legacy browser track
// editor's save format (spec §6) so bundled tracks can be dropped in
// unmodified.
package track

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

// MinSpawnSeparation is the smallest allowed distance between two
// spawn points.
const MinSpawnSeparation = 24.0

// ElementType tags a TrackElement's behavior.
type ElementType string

// Recognized element types, including the legacy aliases accepted on
// read and normalized away on first use.
const (
	ElementRoad       ElementType = "road"
	ElementRoadCurve  ElementType = "road_curve"
	ElementWall       ElementType = "wall"
	ElementCheckpoint ElementType = "checkpoint"
	ElementFinish     ElementType = "finish"
	ElementBoost      ElementType = "boost"
	ElementOil        ElementType = "oil"
	ElementSpawn      ElementType = "spawn"
	ElementRamp       ElementType = "ramp"
	ElementRampUp     ElementType = "ramp_up"
	ElementRampDown   ElementType = "ramp_down"
	ElementBridge     ElementType = "bridge"
	ElementBarrier    ElementType = "barrier"
	ElementTireStack  ElementType = "tire_stack"
	ElementPitStop    ElementType = "pit_stop"
)

// aliases maps legacy alternate type names to their canonical form.
var aliases = map[ElementType]ElementType{
	"boost_pad": ElementBoost,
	"oil_slick": ElementOil,
}

func canonicalType(t ElementType) ElementType {
	if canon, ok := aliases[t]; ok {
		return canon
	}
	return t
}

// Element is a single piece of track geometry. Fields shared by every
// type come first; type-specific fields are optional.
type Element struct {
	ID              string         `json:"id"`
	Type            ElementType    `json:"type"`
	X               float64        `json:"x"`
	Y               float64        `json:"y"`
	Width           float64        `json:"width"`
	Height          float64        `json:"height"`
	Rotation        float64        `json:"rotation"`
	Layer           *int           `json:"layer,omitempty"`
	CheckpointIndex *int           `json:"checkpointIndex,omitempty"`
	Properties      map[string]any `json:"properties,omitempty"`
}

// elementAlias lets UnmarshalJSON decode into Element's own field set
// without recursing back into itself.
type elementAlias Element

// UnmarshalJSON accepts both the flat x/y fields and the legacy
// editor's nested `position{x,y}` object (spec §6), preferring the
// flat fields when both are present and non-zero.
func (e *Element) UnmarshalJSON(data []byte) error {
	var aux struct {
		elementAlias
		Position *struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"position,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = Element(aux.elementAlias)
	if aux.Position != nil {
		if e.X == 0 {
			e.X = aux.Position.X
		}
		if e.Y == 0 {
			e.Y = aux.Position.Y
		}
	}
	return nil
}

// Radius returns the circumscribed-circle radius used for proximity
// checks against this element (checkpoints and the finish line).
func (e Element) Radius() float64 {
	w, h := e.Width, e.Height
	if w > h {
		return w / 2
	}
	return h / 2
}

// Difficulty is the track's advertised difficulty band.
type Difficulty string

const (
	DifficultyEasy    Difficulty = "easy"
	DifficultyMedium  Difficulty = "medium"
	DifficultyHard    Difficulty = "hard"
	DifficultyExtreme Difficulty = "extreme"
)

// Track is the immutable static description of a race course.
type Track struct {
	ID              string     `json:"id"`
	Version         int        `json:"version"`
	Name            string     `json:"name"`
	Author          string     `json:"author,omitempty"`
	CreatedAt       string     `json:"createdAt,omitempty"`
	UpdatedAt       string     `json:"updatedAt,omitempty"`
	Difficulty      Difficulty `json:"difficulty,omitempty"`
	DefaultLapCount int        `json:"defaultLapCount"`
	Width           int        `json:"width"`
	Height          int        `json:"height"`
	WrapAround      bool       `json:"wrapAround,omitempty"`
	Elements        []Element  `json:"elements"`
	Scenery         []Element  `json:"scenery,omitempty"`
}

// rawTrack captures editor-only fields ("select", "car") so they can
// be stripped before persistence, per spec §6.
type rawTrack struct {
	Track
	Select json.RawMessage `json:"select,omitempty"`
	Car    json.RawMessage `json:"car,omitempty"`
}

// Load reads and validates a track from a JSON file on disk.
func Load(path string) (*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("track: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a track from its JSON representation.
func Parse(data []byte) (*Track, error) {
	var raw rawTrack
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("track: decode: %w", err)
	}

	t := raw.Track
	for i := range t.Elements {
		t.Elements[i].Type = canonicalType(t.Elements[i].Type)
	}
	for i := range t.Scenery {
		t.Scenery[i].Type = canonicalType(t.Scenery[i].Type)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate enforces the structural invariants from spec §3: a finish
// element is present, at least one spawn exists, checkpoints form a
// contiguous 0..N-1 sequence, and spawns are not mutually closer than
// MinSpawnSeparation.
func (t *Track) Validate() error {
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("track %s: width and height must be positive", t.ID)
	}

	if _, ok := t.Finish(); !ok {
		return fmt.Errorf("track %s: missing finish element", t.ID)
	}

	spawns := t.Spawns()
	if len(spawns) == 0 {
		return fmt.Errorf("track %s: at least one spawn is required", t.ID)
	}
	for i := 0; i < len(spawns); i++ {
		for j := i + 1; j < len(spawns); j++ {
			dx := spawns[i].X - spawns[j].X
			dy := spawns[i].Y - spawns[j].Y
			if math.Hypot(dx, dy) < MinSpawnSeparation {
				return fmt.Errorf("track %s: spawns %s and %s are too close", t.ID, spawns[i].ID, spawns[j].ID)
			}
		}
	}

	checkpoints := t.Checkpoints()
	for i, c := range checkpoints {
		if c.CheckpointIndex == nil || *c.CheckpointIndex != i {
			return fmt.Errorf("track %s: checkpoints must form a contiguous 0..N-1 sequence", t.ID)
		}
	}

	return nil
}

// Checkpoints returns the checkpoint elements sorted by index.
func (t *Track) Checkpoints() []Element {
	var out []Element
	for _, e := range t.Elements {
		if e.Type == ElementCheckpoint {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ii, jj := -1, -1
		if out[i].CheckpointIndex != nil {
			ii = *out[i].CheckpointIndex
		}
		if out[j].CheckpointIndex != nil {
			jj = *out[j].CheckpointIndex
		}
		return ii < jj
	})
	return out
}

// Finish returns the finish element, if one is present.
func (t *Track) Finish() (Element, bool) {
	for _, e := range t.Elements {
		if e.Type == ElementFinish {
			return e, true
		}
	}
	return Element{}, false
}

// Spawns returns the spawn elements in file order.
func (t *Track) Spawns() []Element {
	var out []Element
	for _, e := range t.Elements {
		if e.Type == ElementSpawn {
			out = append(out, e)
		}
	}
	return out
}

// Center returns the geometric center of an axis-aligned element.
func Center(e Element) (x, y float64) {
	return e.X + e.Width/2, e.Y + e.Height/2
}

// StripEditorOnlyFields removes the "select"/"car" editor scratch
// fields from raw track JSON before persisting it, per spec §6.
func StripEditorOnlyFields(data []byte) ([]byte, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("track: strip editor fields: %w", err)
	}
	delete(raw, "select")
	delete(raw, "car")
	return json.Marshal(raw)
}
