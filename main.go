package main

import "github.com/ValentinKolb/rmap/cmd"

func main() {
	cmd.Execute()
}
