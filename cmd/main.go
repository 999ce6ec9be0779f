package main

import (
	"fmt"
	"os"

	"github.com/daetalus/hydrogen/pkg"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Println("Expected one argument: source location")
		return
	}

	path := os.Args[1]

	s := hydrogen.NewState(hydrogen.Options{})
	defer s.Free()

	pkg := s.AddPackageFromPath(path)
	s.RegisterNative(pkg, "print", hydrogen.VarArg, func(s *hydrogen.State, args []hydrogen.Value) (hydrogen.Value, error) {
		for i, a := range args {
			if i > 0 {
				fmt.Print(" ")
			}
			fmt.Print(s.FormatValue(a))
		}
		fmt.Println()
		return hydrogen.ValueNil, nil
	})

	runErr, err := s.RunFile(pkg, path)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if runErr != nil {
		fmt.Println(runErr)
		os.Exit(1)
	}
}
