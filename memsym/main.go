// Package main provides the memsym command, which runs an instruction trace
// through a simulated TLB and page tables.
package main

import "github.com/sarchlab/memsym/memsym/cmd"

func main() {
	cmd.Execute()
}
