package main

import "github.com/frahmantamala/taskboard/cmd"

func main() {
	cmd.Execute()
}
