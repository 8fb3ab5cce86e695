package main

import (
	"github.com/OFFIS-RIT/bibliograph/internal/cli"
	"github.com/OFFIS-RIT/bibliograph/internal/util"
)

func main() {
	util.LoadEnv()
	cli.Execute()
}
