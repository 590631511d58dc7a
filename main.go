package main

import "asset-tracker/cmd"

func main() {
	cmd.Execute()
}
