package main

import (
	"flag"

	"reportwiz/internal/app"
)

func main() {
	envFile := flag.String("env", "", "path to a .env file with REPORTWIZ_* settings")
	flag.Parse()

	app.ServeMCP(*envFile)
}
