// Command cohortsim projects a population ledger year by year.
package main

import "github.com/sarchlab/cohortsim/cohortsim/cmd"

func main() {
	cmd.Execute()
}
