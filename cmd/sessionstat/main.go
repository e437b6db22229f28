package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zkpoex/disclosure/cmd/sessionstat/calc"
	"github.com/zkpoex/disclosure/internal/utils/timingutils"
)

// $ go run ./cmd/sessionstat data/sessions.log
func main() {
	if len(os.Args) != 2 {
		fmt.Println("Usage: go run ./cmd/sessionstat <session_log_path>")
		return
	}

	logPath := os.Args[1]
	logFd, err := os.Open(logPath)
	if err != nil {
		log.Fatal(errors.Wrapf(err, "cannot open file '%v'", logPath))
	}
	defer logFd.Close()

	entries, err := timingutils.ReadSessionLog(logFd)
	if err != nil {
		log.Fatal(err)
	}

	consumptions, err := calc.CalcTimeConsumptions(entries)
	if err != nil {
		log.Fatal(errors.Wrapf(err, "failed on file '%v'", logPath))
	}

	for _, c := range consumptions {
		log.Infof("%v-Sessions: %v succeeded, %v failed, %v unfinished", c.Path, c.Succeeded, c.Failed, c.Unfinished)
		log.Infof("%v-Overall consumption: %v", c.Path, c.OverallConsumption)
		log.Infof("%v-Average consumption: %v", c.Path, c.AvgConsumption)
	}
}
