package main

import "github.com/ryjones/iroha/cmd/irohad/app"

func main() {
	app.Execute()
}
