package main

import (
	"github.com/ozcart/salewatch/cmd"
)

func main() {
	cmd.Execute()
}
