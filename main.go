package main

import "feedback-webapp/internal/app"

func main() {
	app.Run()
}
