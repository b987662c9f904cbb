package cmjstats

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Role is the semantic meaning of a column inside an Attribute.
type Role string

const (
	RoleTime     Role = "time"
	RoleVelocity Role = "velocity"
	RoleLeft     Role = "left"
	RoleRight    Role = "right"
	RoleCombined Role = "combined"
)

// Column binds a semantic role to an exact header label.
type Column struct {
	Role  Role
	Label string
}

// VelocityColumns names the header labels of a velocity source.
type VelocityColumns struct {
	Time     string `json:"time"`
	Velocity string `json:"velocity"`
}

// ForceColumns names the header labels of a force source.
type ForceColumns struct {
	Time     string `json:"time"`
	Left     string `json:"left"`
	Right    string `json:"right"`
	Combined string `json:"combined"`
}

// DefaultVelocityColumns matches the force-platform vendor export.
func DefaultVelocityColumns() VelocityColumns {
	return VelocityColumns{Time: "Time (s)", Velocity: "Velocity (M/s)"}
}

// DefaultForceColumns matches the force-platform vendor export.
func DefaultForceColumns() ForceColumns {
	return ForceColumns{Time: "Time (s)", Left: "Left (N)", Right: "Right (N)", Combined: "Combined (N)"}
}

// Columns returns the role/label list for LoadAttribute.
func (c VelocityColumns) Columns() []Column {
	return []Column{
		{Role: RoleTime, Label: c.Time},
		{Role: RoleVelocity, Label: c.Velocity},
	}
}

// Columns returns the role/label list for LoadAttribute.
func (c ForceColumns) Columns() []Column {
	return []Column{
		{Role: RoleTime, Label: c.Time},
		{Role: RoleLeft, Label: c.Left},
		{Role: RoleRight, Label: c.Right},
		{Role: RoleCombined, Label: c.Combined},
	}
}

// Table is a raw tabular source: one header row followed by data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadTable reads a CSV source with a header row.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("read csv header: %w", ErrEmptyInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv rows: %w", err)
	}
	return &Table{Header: header, Rows: rows}, nil
}

// Attribute is a time series projected down to a set of named columns.
// Rows keep the order of the source.
type Attribute struct {
	columns []Column
	values  map[Role][]float64
	n       int
}

// LoadAttribute validates that every requested label is in the table header
// and projects the table to those columns.
func LoadAttribute(t *Table, cols []Column) (*Attribute, error) {
	if t == nil {
		return nil, ErrEmptyInput
	}

	position := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		if _, dup := position[h]; !dup {
			position[h] = i
		}
	}
	idx := make([]int, len(cols))
	for i, c := range cols {
		p, ok := position[c.Label]
		if !ok {
			return nil, &HeaderMissingError{Label: c.Label}
		}
		idx[i] = p
	}

	attr := &Attribute{
		columns: append([]Column(nil), cols...),
		values:  make(map[Role][]float64, len(cols)),
		n:       len(t.Rows),
	}
	for _, c := range cols {
		attr.values[c.Role] = make([]float64, 0, len(t.Rows))
	}
	for r, row := range t.Rows {
		for i, c := range cols {
			p := idx[i]
			if p >= len(row) {
				return nil, fmt.Errorf("row %d: column %q: short row", r+1, c.Label)
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[p]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: column %q: %w", r+1, c.Label, err)
			}
			attr.values[c.Role] = append(attr.values[c.Role], v)
		}
	}
	return attr, nil
}

// LoadVelocity reads a velocity CSV source.
func LoadVelocity(r io.Reader, cols VelocityColumns) (*Attribute, error) {
	t, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	return LoadAttribute(t, cols.Columns())
}

// LoadForce reads a force CSV source.
func LoadForce(r io.Reader, cols ForceColumns) (*Attribute, error) {
	t, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	return LoadAttribute(t, cols.Columns())
}

// Len returns the number of rows.
func (a *Attribute) Len() int {
	return a.n
}

// Columns returns the role/label bindings of the attribute.
func (a *Attribute) Columns() []Column {
	return append([]Column(nil), a.columns...)
}

// Values returns the column for role. The slice is shared; callers must not modify it.
func (a *Attribute) Values(role Role) ([]float64, bool) {
	v, ok := a.values[role]
	return v, ok
}

// Label returns the header label bound to role.
func (a *Attribute) Label(role Role) string {
	for _, c := range a.columns {
		if c.Role == role {
			return c.Label
		}
	}
	return string(role)
}

func (a *Attribute) require(role Role) ([]float64, error) {
	v, ok := a.values[role]
	if !ok {
		return nil, &HeaderMissingError{Label: a.Label(role)}
	}
	return v, nil
}
