package mechanics

import (
	"fmt"
	"strings"
	"time"

	"raid-server/pkg/logger"
)

// Идентификаторы встроенных механик
const (
	PillarPhaseID  = "pillar_phase"
	MeteorStrikeID = "meteor_strike"
	LavaWaveID     = "lava_wave"
	ShockwaveID    = "shockwave"
)

// Значения для механики, которой нет в таблице
const (
	FallbackDurationMs = 5000
	FallbackWarningMs  = 3000
	FallbackWeight     = 1
	FallbackDamage     = 25
)

// Params - числовые параметры геометрии (радиусы, количество ударов и т.п.)
type Params map[string]int

// Int возвращает параметр или fallback, если он не задан.
func (p Params) Int(key string, fallback int) int {
	if v, ok := p[key]; ok {
		return v
	}
	return fallback
}

// Definition - строка таблицы настроек механики. Это данные, а не поведение:
// тюнинг не требует правки логики.
type Definition struct {
	ID          string `yaml:"id" json:"id" jsonschema:"title=Mechanic ID,description=Stable identifier used by the encounter script,pattern=^[a-z0-9_]+$,minLength=1"`
	DisplayName string `yaml:"displayName" json:"displayName" jsonschema:"title=Display name,minLength=1"`
	Description string `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"description=Player-facing text sent on activation"`
	Warning     string `yaml:"warning,omitempty" json:"warning,omitempty" jsonschema:"description=Warning template; {name} and {seconds} are substituted"`
	DurationMs  int    `yaml:"durationMs" json:"durationMs" jsonschema:"minimum=1"`
	WarningMs   int    `yaml:"warningMs,omitempty" json:"warningMs,omitempty" jsonschema:"minimum=0"`
	Weight      int    `yaml:"weight" json:"weight" jsonschema:"minimum=0,description=Relative priority for weighted selection"`
	Damage      int    `yaml:"damage,omitempty" json:"damage,omitempty" jsonschema:"minimum=0"`
	Params      Params `yaml:"params,omitempty" json:"params,omitempty" jsonschema:"description=Geometry tunables"`
}

// Duration - полное время стадии Executing.
func (d Definition) Duration() time.Duration {
	return time.Duration(d.DurationMs) * time.Millisecond
}

// WarningDuration - время стадии Warning. Ноль означает активацию без предупреждения.
func (d Definition) WarningDuration() time.Duration {
	return time.Duration(d.WarningMs) * time.Millisecond
}

// WarningMessage подставляет имя и время до удара в шаблон предупреждения.
func (d Definition) WarningMessage() string {
	tmpl := d.Warning
	if tmpl == "" {
		tmpl = "{name} incoming!"
	}
	seconds := fmt.Sprintf("%d", (d.WarningMs+999)/1000)
	return strings.NewReplacer("{name}", d.DisplayName, "{seconds}", seconds).Replace(tmpl)
}

// Table - таблица механик, ключ - ID.
type Table struct {
	Mechanics []Definition `yaml:"mechanics" json:"mechanics" jsonschema:"minItems=1"`
}

// Find ищет механику по ID.
func (t Table) Find(id string) (Definition, bool) {
	for _, def := range t.Mechanics {
		if def.ID == id {
			return def, true
		}
	}
	return Definition{}, false
}

// Lookup возвращает настройки механики. Для неизвестного ID отдает
// значения по умолчанию и пишет предупреждение, но никогда не падает.
func (t Table) Lookup(id string) Definition {
	if def, ok := t.Find(id); ok {
		return def
	}
	logger.Log.WithField("mechanic", id).Warn("Mechanic not found in table, using fallback definition")
	return FallbackDefinition(id)
}

// IDs возвращает идентификаторы в порядке таблицы.
func (t Table) IDs() []string {
	ids := make([]string, 0, len(t.Mechanics))
	for _, def := range t.Mechanics {
		ids = append(ids, def.ID)
	}
	return ids
}

// FallbackDefinition - документированное значение по умолчанию для промаха в таблице.
func FallbackDefinition(id string) Definition {
	return Definition{
		ID:          id,
		DisplayName: id,
		DurationMs:  FallbackDurationMs,
		WarningMs:   FallbackWarningMs,
		Weight:      FallbackWeight,
		Damage:      FallbackDamage,
	}
}

// DefaultTable - встроенная таблица. config/mechanics.yaml повторяет ее.
func DefaultTable() Table {
	return Table{Mechanics: []Definition{
		{
			ID:          PillarPhaseID,
			DisplayName: "Pillar Phase",
			Description: "Stand next to a pillar or be crushed!",
			Warning:     "The boss raises the pillars. Get next to one within {seconds}s!",
			DurationMs:  6000,
			WarningMs:   3000,
			Weight:      8,
			Damage:      60,
			Params:      Params{ParamSafeRadius: 1},
		},
		{
			ID:          MeteorStrikeID,
			DisplayName: "Meteor Strike",
			Description: "Meteors are crashing down!",
			Warning:     "Meteors will land in {seconds}s. Leave the marked zones!",
			DurationMs:  3000,
			WarningMs:   4000,
			Weight:      6,
			Damage:      40,
			Params:      Params{ParamImpacts: 5, ParamBlastRadius: 1},
		},
		{
			ID:          LavaWaveID,
			DisplayName: "Lava Wave",
			Description: "Lava floods the arena!",
			Warning:     "A lava wave is coming in {seconds}s. Find a safe lane!",
			DurationMs:  5000,
			WarningMs:   3000,
			Weight:      5,
			Damage:      50,
			Params:      Params{ParamSafeLanes: 2, ParamLaneWidth: 1},
		},
		{
			ID:          ShockwaveID,
			DisplayName: "Shockwave",
			Description: "A shockwave ripples out from the boss!",
			Warning:     "The boss slams the ground. Hug the boss or run to the edge in {seconds}s!",
			DurationMs:  3000,
			WarningMs:   2000,
			Weight:      4,
			Damage:      35,
			Params:      Params{ParamInnerRadius: 2, ParamOuterRadius: 3},
		},
	}}
}
