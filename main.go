package main

import "github.com/samhoang/themesync/cmd"

func main() {
	cmd.Execute()
}
