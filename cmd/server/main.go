package main

import "shopwhiz/go_backend/internal/app"

func main() {
	app.Run()
}
