package ledger

import "fmt"

// Field names a carried-forward column of the ledger.
type Field int

// Ledger fields, in the order they are scaled and integerized. Group totals
// come before their members.
const (
	Pop Field = iota
	PopMil
	GQ
	HH
	HHHeadLF
	Size1
	Size2
	Size3
	Child1
	Senior1
	Workers0
	Workers1
	Workers2
	Workers3
	numFields
)

// Group is a set of fields that share a total.
type Group string

// Field groups.
const (
	GroupPopulation Group = "population"
	GroupHouseholds Group = "households"
)

// FieldInfo describes a field.
type FieldInfo struct {
	Field Field
	Name  string
	Label string
	Group Group

	// Control is the name of the field's control total within its group.
	// Empty means the field is never controlled.
	Control string
}

// Catalogue lists every field in processing order.
var Catalogue = []FieldInfo{
	{Pop, "pop", "Population", GroupPopulation, "pop"},
	{PopMil, "pop_mil", "Military", GroupPopulation, ""},
	{GQ, "gq", "Group Quarters", GroupPopulation, "gq"},
	{HH, "hh", "Household", GroupHouseholds, "hh"},
	{HHHeadLF, "hh_head_lf", "HH Head LF", GroupHouseholds, ""},
	{Size1, "size1", "HH Size 1", GroupHouseholds, "size1"},
	{Size2, "size2", "HH Size 2", GroupHouseholds, "size2"},
	{Size3, "size3", "HH Size 3+", GroupHouseholds, "size3"},
	{Child1, "child1", "HH <18 1+", GroupHouseholds, "child1"},
	{Senior1, "senior1", "HH 65+ 1+", GroupHouseholds, ""},
	{Workers0, "workers0", "HH Workers 0", GroupHouseholds, "workers0"},
	{Workers1, "workers1", "HH Workers 1", GroupHouseholds, "workers1"},
	{Workers2, "workers2", "HH Workers 2", GroupHouseholds, "workers2"},
	{Workers3, "workers3", "HH Workers 3+", GroupHouseholds, "workers3"},
}

// SizeFields partition households by household size.
var SizeFields = []Field{Size1, Size2, Size3}

// WorkerFields partition households by number of workers.
var WorkerFields = []Field{Workers0, Workers1, Workers2, Workers3}

// Characteristics lists the household fields bounded by HH.
func Characteristics() []Field {
	var out []Field
	for _, info := range Catalogue {
		if info.Group == GroupHouseholds && info.Field != HH {
			out = append(out, info.Field)
		}
	}

	return out
}

// Info returns the catalogue entry of the field.
func (f Field) Info() FieldInfo {
	if f < 0 || f >= numFields {
		panic(fmt.Sprintf("unknown field %d", int(f)))
	}

	return Catalogue[f]
}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return fmt.Sprintf("Field(%d)", int(f))
	}

	return Catalogue[f].Name
}
