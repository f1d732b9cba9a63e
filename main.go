package main

import "github.com/openscrape/facedex/cmd"

func main() {
	cmd.Execute()
}
