package ledger

import "fmt"

// Record is one cohort of the ledger.
type Record struct {
	Key

	Pop    int64
	PopMil int64
	GQ     int64

	HH       int64
	HHHeadLF int64
	Size1    int64
	Size2    int64
	Size3    int64
	Child1   int64
	Senior1  int64
	Workers0 int64
	Workers1 int64
	Workers2 int64
	Workers3 int64
}

func (r *Record) ref(f Field) *int64 {
	switch f {
	case Pop:
		return &r.Pop
	case PopMil:
		return &r.PopMil
	case GQ:
		return &r.GQ
	case HH:
		return &r.HH
	case HHHeadLF:
		return &r.HHHeadLF
	case Size1:
		return &r.Size1
	case Size2:
		return &r.Size2
	case Size3:
		return &r.Size3
	case Child1:
		return &r.Child1
	case Senior1:
		return &r.Senior1
	case Workers0:
		return &r.Workers0
	case Workers1:
		return &r.Workers1
	case Workers2:
		return &r.Workers2
	case Workers3:
		return &r.Workers3
	default:
		panic(fmt.Sprintf("unknown field %d", int(f)))
	}
}

// Get returns the value of a field.
func (r Record) Get(f Field) int64 {
	return *r.ref(f)
}

// Set changes the value of a field.
func (r *Record) Set(f Field, v int64) {
	*r.ref(f) = v
}

// Components holds the components of change of a cohort over one year.
type Components struct {
	Key

	Deaths int64
	Births int64
	Ins    int64
	Outs   int64
}
