package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Field names a semantic cell inside a project block.
type Field string

const (
	FieldNo           Field = "no"
	FieldName         Field = "name"
	FieldAddress      Field = "address"
	FieldAddressExtra Field = "address_extra"
	FieldMap          Field = "map"
	FieldFile         Field = "file"
	FieldPhone        Field = "phone"
	FieldStatus       Field = "status"
	FieldStageLabel   Field = "stage_label"
	FieldPlanDate     Field = "plan_date"
	FieldDoneDate     Field = "done_date"
	FieldFolderLabel  Field = "folder_label"
	FieldFolderURL    Field = "folder_url"
	FieldProjectDate  Field = "project_date"
)

var requiredFields = []Field{
	FieldNo, FieldName, FieldAddress, FieldAddressExtra, FieldMap, FieldFile,
	FieldPhone, FieldStatus, FieldStageLabel, FieldPlanDate, FieldDoneDate,
	FieldFolderLabel, FieldFolderURL, FieldProjectDate,
}

// Offset is a cell position relative to a block's first row. Col is 1-based.
type Offset struct {
	Row int `yaml:"row"`
	Col int `yaml:"col"`
}

// Layout is the field offset table for one deployment.
type Layout map[Field]Offset

// DefaultLayout matches the 9-row block sheet (blocks at rows 4, 13, 22, ...).
func DefaultLayout() Layout {
	return Layout{
		FieldNo:           {Row: 0, Col: 2},  // B
		FieldName:         {Row: 0, Col: 3},  // C
		FieldAddress:      {Row: 0, Col: 6},  // F
		FieldAddressExtra: {Row: 2, Col: 6},  // F+2
		FieldMap:          {Row: 4, Col: 6},  // F+4
		FieldFile:         {Row: 4, Col: 11}, // K+4
		FieldPhone:        {Row: 2, Col: 4},  // D+2
		FieldStatus:       {Row: 0, Col: 7},  // G
		FieldStageLabel:   {Row: 0, Col: 7},  // G
		FieldPlanDate:     {Row: 0, Col: 8},  // H
		FieldDoneDate:     {Row: 0, Col: 9},  // I
		FieldFolderLabel:  {Row: 0, Col: 18}, // R
		FieldFolderURL:    {Row: 0, Col: 19}, // S
		FieldProjectDate:  {Row: 5, Col: 4},  // D+5
	}
}

// Validate checks that every required field is present and addressable.
func (l Layout) Validate(maxRowOffset int) error {
	for _, f := range requiredFields {
		off, ok := l[f]
		if !ok {
			return fmt.Errorf("layout: missing field %q", f)
		}
		if off.Col < 1 {
			return fmt.Errorf("layout: field %q column must be >= 1, got %d", f, off.Col)
		}
		if off.Row < 0 || (maxRowOffset > 0 && off.Row >= maxRowOffset) {
			return fmt.Errorf("layout: field %q row offset %d outside block", f, off.Row)
		}
	}
	return nil
}

// Fields returns the layout's field names in a stable order.
func (l Layout) Fields() []Field {
	out := make([]Field, 0, len(l))
	for f := range l {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type layoutFile struct {
	Fields map[string]Offset `yaml:"fields"`
}

// LoadLayout reads a YAML layout file and overlays it on the defaults.
func LoadLayout(path string) (Layout, error) {
	layout := DefaultLayout()
	if path == "" {
		return layout, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}

	var lf layoutFile
	if err := yaml.Unmarshal(b, &lf); err != nil {
		return nil, fmt.Errorf("failed to parse layout file: %w", err)
	}

	for name, off := range lf.Fields {
		f := Field(name)
		if _, known := layout[f]; !known {
			return nil, fmt.Errorf("layout: unknown field %q", name)
		}
		layout[f] = off
	}
	return layout, nil
}
