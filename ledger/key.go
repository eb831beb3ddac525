// Package ledger holds the cohort table that the annual cycle ages and
// rebalances, keyed by race, sex, and single year of age.
package ledger

import "fmt"

// Sex is the sex category of a cohort.
type Sex string

// Sex categories.
const (
	Female Sex = "F"
	Male   Sex = "M"
)

// Sexes lists the sex categories in key order.
var Sexes = []Sex{Female, Male}

// MaxAge is the open-ended oldest age. Cohorts ageing past it stay at it.
const MaxAge = 110

// Key identifies a cohort.
type Key struct {
	Race string
	Sex  Sex
	Age  int
}

// Less orders keys by race, then sex, then age.
func (k Key) Less(o Key) bool {
	if k.Race != o.Race {
		return k.Race < o.Race
	}

	if k.Sex != o.Sex {
		return k.Sex < o.Sex
	}

	return k.Age < o.Age
}

// Older returns the key of the same race and sex one year older, capped at
// MaxAge.
func (k Key) Older() Key {
	k.Age = min(k.Age+1, MaxAge)
	return k
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Race, k.Sex, k.Age)
}

func (k Key) valid() bool {
	return k.Race != "" &&
		(k.Sex == Female || k.Sex == Male) &&
		k.Age >= 0 && k.Age <= MaxAge
}
