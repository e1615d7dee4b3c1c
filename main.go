// The main package for the casedata executable.
package main

import "github.com/1009rishit/Case-data/cmd"

func main() {
	cmd.Execute()
}
