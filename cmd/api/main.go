package main

import (
	"gamebank/internal/server"
)

func main() {
	server.ApiInit()
}
