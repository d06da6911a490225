package main

import "github.com/reimagine-business/donna/cmd"

func main() {
	cmd.Execute()
}
