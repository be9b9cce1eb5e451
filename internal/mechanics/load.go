package mechanics

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// SchemaURL - идентификатор встроенной схемы таблицы механик.
const SchemaURL = "https://raid-server.local/schemas/mechanics.schema.json"

// Схема генерируется командой cmd/schema.
//
//go:embed schema/mechanics.schema.json
var tableSchemaJSON string

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// ErrDuplicateMechanic - в таблице два раза встречается один ID.
var ErrDuplicateMechanic = errors.New("duplicate mechanic id")

func tableSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiledSchema, compileErr = jsonschema.CompileString(SchemaURL, tableSchemaJSON)
	})
	return compiledSchema, compileErr
}

// LoadTable читает YAML-таблицу механик с диска.
func LoadTable(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Table{}, err
	}
	t, err := ParseTable(raw)
	if err != nil {
		return Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParseTable разбирает YAML, проверяет его по JSON-схеме и на уникальность ID.
func ParseTable(raw []byte) (Table, error) {
	// 1. Сырой документ -> JSON-совместимые типы для валидатора
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Table{}, fmt.Errorf("parse yaml: %w", err)
	}
	normalized, err := toJSONValue(doc)
	if err != nil {
		return Table{}, err
	}

	// 2. Валидация по схеме
	schema, err := tableSchema()
	if err != nil {
		return Table{}, fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(normalized); err != nil {
		return Table{}, fmt.Errorf("validate: %w", err)
	}

	// 3. Типизированная таблица
	var t Table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Table{}, fmt.Errorf("decode table: %w", err)
	}

	seen := make(map[string]bool, len(t.Mechanics))
	for _, def := range t.Mechanics {
		if seen[def.ID] {
			return Table{}, fmt.Errorf("%w: %s", ErrDuplicateMechanic, def.ID)
		}
		seen[def.ID] = true
	}
	return t, nil
}

// toJSONValue прогоняет значение через encoding/json, чтобы числа стали float64,
// а ключи - строками, как того ожидает валидатор.
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize yaml: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalize yaml: %w", err)
	}
	return out, nil
}
