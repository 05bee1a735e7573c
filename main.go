package main

import "github.com/samsaffron/sql2pyspark/cmd"

func main() {
	cmd.Execute()
}
