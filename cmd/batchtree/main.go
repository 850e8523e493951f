// Command batchtree inspects region layouts and simulates batched trees in
// memory.
package main

import (
	"os"

	"github.com/datatrails/go-datatrails-common/logger"
)

func main() {
	defer logger.OnExit()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
