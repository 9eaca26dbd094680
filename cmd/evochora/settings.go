package main

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/beevik/prefixtree/v2"
)

// settings holds every tunable the interactive shell exposes through
// `set`. Each field's `doc` tag is displayed alongside it.
type settings struct {
	WorldWidth  int  `doc:"width of the world grid (axis 0)"`
	WorldHeight int  `doc:"height of the world grid (axis 1)"`
	Toroidal    bool `doc:"whether the world wraps at its edges"`
	Seed        int  `doc:"RNG seed used by the next new runtime"`
	TickBatch   int  `doc:"ticks advanced per bare 'run' invocation"`
	Color       bool `doc:"colorize snapshot and disassembly output"`
	DisasmLines int  `doc:"default number of instructions to disassemble"`
}

func newSettings() *settings {
	return &settings{
		WorldWidth:  64,
		WorldHeight: 64,
		Toroidal:    true,
		Seed:        1,
		TickBatch:   1,
		Color:       true,
		DisasmLines: 20,
	}
}

type settingsField struct {
	name  string
	index int
	kind  reflect.Kind
	typ   reflect.Type
	doc   string
}

var (
	settingsTree   = prefixtree.New[*settingsField]()
	settingsFields []settingsField
)

func init() {
	t := reflect.TypeOf(settings{})
	settingsFields = make([]settingsField, t.NumField())
	for i := 0; i < len(settingsFields); i++ {
		f := t.Field(i)
		doc, _ := f.Tag.Lookup("doc")
		settingsFields[i] = settingsField{
			name:  f.Name,
			index: i,
			kind:  f.Type.Kind(),
			typ:   f.Type,
			doc:   doc,
		}
		settingsTree.Add(strings.ToLower(f.Name), &settingsFields[i])
	}
}

func (s *settings) Display(w io.Writer) {
	value := reflect.ValueOf(s).Elem()
	for i, f := range settingsFields {
		v := value.Field(i)
		line := fmt.Sprintf("    %-16s %v", f.name, v)
		fmt.Fprintf(w, "%-28s (%s)\n", line, f.doc)
	}
}

func (s *settings) Kind(key string) reflect.Kind {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return reflect.Invalid
	}
	return f.kind
}

func (s *settings) Set(key string, value any) error {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return err
	}

	vIn := reflect.ValueOf(value)
	if (f.kind == reflect.String && vIn.Type().Kind() != reflect.String) ||
		(f.kind != reflect.String && vIn.Type().Kind() == reflect.String) ||
		!vIn.Type().ConvertibleTo(f.typ) {
		return errors.New("invalid type")
	}

	reflect.ValueOf(s).Elem().Field(f.index).Set(vIn.Convert(f.typ))
	return nil
}
