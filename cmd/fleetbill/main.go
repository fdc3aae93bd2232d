// Package main is the entry point for the fleetbill CLI.
package main

func main() {
	Execute()
}
