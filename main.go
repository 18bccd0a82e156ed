package main

import "college-records/cmd"

func main() {
	cmd.Execute()
}
