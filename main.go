package main

import (
	"fmt"
	"os"

	"github.com/jensroland/git-hunklock/cmd"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		cmd.RunDeps(nil)
		return
	}

	switch os.Args[1] {
	case "deps":
		cmd.RunDeps(os.Args[2:])
	case "assignments":
		cmd.RunAssignments(os.Args[2:])
	case "assign":
		cmd.RunAssign(os.Args[2:])
	case "ranges":
		cmd.RunRanges(os.Args[2:])
	case "stacks":
		cmd.RunStacks(os.Args[2:])
	case "log":
		cmd.RunLog(os.Args[2:])
	case "--version":
		fmt.Println("git-hunklock", version)
	case "help", "-h", "--help":
		fmt.Print(cmd.Usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n%s", os.Args[1], cmd.Usage)
		os.Exit(1)
	}
}
