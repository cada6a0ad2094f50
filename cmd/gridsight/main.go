// GridSight decision plane: answers operator questions about the deployed
// forecasting model by running the agent pipeline over its latest metrics.
package main

import (
	"os"

	"github.com/gridsight/control-plane/cmd/gridsight/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
