// Chainfuzz implements tooling around the deserialization fuzzer.
package main

import (
	"github.com/oasisprotocol/chainfuzz/chainfuzz/cmd"
)

func main() {
	cmd.Execute()
}
