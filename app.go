package main

import "github.com/masmgr/amexamine/cmd"

func main() {
	cmd.Run()
}
