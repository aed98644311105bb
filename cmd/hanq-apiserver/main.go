// Package main is the entry point for the HanQ question answering server.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/hanq-io/hanq/cmd/hanq-apiserver/app"
)

func main() {
	app.NewApp().Run()
}
