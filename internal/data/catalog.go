package data

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/attrsys/internal/modifier"
	"github.com/udisondev/attrsys/internal/tag"
)

// ModifierEntry: одна запись каталога модификаторов (YAML).
type ModifierEntry struct {
	Class    string          `yaml:"class"`
	Effect   string          `yaml:"effect"`
	Kind     string          `yaml:"kind"`
	CanStack bool            `yaml:"can_stack"`
	Tags     tag.Set         `yaml:"tags"`
	Duration float64         `yaml:"duration"`
	Params   modifier.Params `yaml:"params"`
}

type catalogFile struct {
	Modifiers []ModifierEntry `yaml:"modifiers"`
}

// ParseModifierCatalog разбирает YAML каталога.
func ParseModifierCatalog(data []byte) ([]ModifierEntry, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing modifier catalog: %w", err)
	}
	return f.Modifiers, nil
}

// LoadModifierCatalog читает каталог из файла.
func LoadModifierCatalog(path string) ([]ModifierEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading modifier catalog %s: %w", path, err)
	}
	entries, err := ParseModifierCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Definition строит modifier.Definition из записи.
// Параметры эффекта проверяются один раз здесь, поэтому New не может упасть.
func (e ModifierEntry) Definition() (modifier.Definition, error) {
	if e.Class == "" {
		return modifier.Definition{}, fmt.Errorf("%w: empty class", modifier.ErrInvalidDefinition)
	}
	kind, err := modifier.ParseKind(e.Kind)
	if err != nil {
		return modifier.Definition{}, fmt.Errorf("class %s: %w", e.Class, err)
	}
	if _, err := modifier.CreateEffect(e.Effect, e.Params); err != nil {
		return modifier.Definition{}, fmt.Errorf("class %s: %w", e.Class, err)
	}

	name, params := e.Effect, e.Params
	return modifier.Definition{
		Class:    modifier.ClassID(e.Class),
		Kind:     kind,
		CanStack: e.CanStack,
		Tags:     e.Tags,
		Duration: e.Duration,
		New: func() modifier.Effect {
			eff, err := modifier.CreateEffect(name, params)
			if err != nil {
				// параметры уже проверены в Definition
				panic(err)
			}
			return eff
		},
	}, nil
}

// RegisterCatalog регистрирует все записи в reg.
// Останавливается на первой ошибке; уже зарегистрированные классы остаются.
func RegisterCatalog(reg *modifier.Registry, entries []ModifierEntry) error {
	for i, e := range entries {
		def, err := e.Definition()
		if err != nil {
			return fmt.Errorf("modifier catalog entry %d: %w", i, err)
		}
		if err := reg.Register(def); err != nil {
			return fmt.Errorf("modifier catalog entry %d: %w", i, err)
		}
	}
	slog.Info("loaded modifier catalog", "count", len(entries))
	return nil
}
