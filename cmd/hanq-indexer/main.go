// Package main is the entry point for the HanQ KorQuAD indexing tool.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/hanq-io/hanq/cmd/hanq-indexer/app"
)

func main() {
	app.NewApp().Run()
}
