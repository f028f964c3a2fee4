package main

import (
	"github.com/BioHazard786/Watchdrop/internal/logging"
)

func main() {
	logging.Init()
	Execute()
}
