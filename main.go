package main

import "inkdesk-backend/cmd"

func main() {
	cmd.Execute()
}
