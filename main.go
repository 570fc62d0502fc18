package main

import "github.com/danendra/school-authz/cmd"

func main() {
	cmd.Execute()
}
