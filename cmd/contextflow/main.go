// Command contextflow runs the demo workflows and manages memory from a terminal.
package main

func main() {
	Execute()
}
