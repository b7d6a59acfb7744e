package main

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/slurmsync-project/slurmsync/cmd/cli"
	_ "github.com/slurmsync-project/slurmsync/pkg/logger"
)

func main() {
	start := time.Now()
	log.Trace().Msgf("Top of execution - %s", start.UTC())
	cli.Execute()
	log.Trace().Msgf("Execution finished - %s", time.Since(start))
}
